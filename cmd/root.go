package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veddb/veddb-go/cmd/gen"
	"github.com/veddb/veddb-go/internal/meta"
)

var (
	// The server to send client commands to. Overrides VEDDB_ADDR.
	addr string

	// Output format for client commands: raw or json
	output string
)

var rootCmd = &cobra.Command{
	Use:   "veddb",
	Short: "VedDB client and dev tooling",
	Long: `VedDB client and dev tooling

veddb talks to a VedDB server over its binary TCP protocol. It also ships
an in-memory dev server for local work.
`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		info := meta.GetInfo()

		fmt.Printf("veddb %s (%s, %s, %s)\n",
			info.Version, info.Build, info.Platform, info.GoVersion)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&addr, "addr", "", "The server address (host:port)")
	flags.StringVarP(&output, "output", "o", "raw", "Output format: raw or json")

	rootCmd.AddCommand(
		pingCmd,
		getCmd,
		setCmd,
		delCmd,
		keysCmd,
		ServerCmd,
		versionCmd,
		gen.RootCmd,
	)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
