package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"

	"github.com/veddb/veddb-go/client"
	"github.com/veddb/veddb-go/internal/env"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the server is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			if err := c.Ping(ctx); err != nil {
				return err
			}

			return render(map[string]interface{}{"ping": "ok"}, "PONG")
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Fetch the value stored under a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			value, err := c.Get(ctx, []byte(args[0]))
			if err != nil {
				return err
			}

			return render(map[string]interface{}{
				"key":   args[0],
				"value": string(value),
			}, string(value))
		})
	},
}

var setCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a value under a key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			if err := c.Set(ctx, []byte(args[0]), []byte(args[1])); err != nil {
				return err
			}

			return render(map[string]interface{}{"key": args[0], "set": "ok"}, "OK")
		})
	},
}

var delCmd = &cobra.Command{
	Use:   "del <key>",
	Short: "Delete a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			if err := c.Delete(ctx, []byte(args[0])); err != nil {
				return err
			}

			return render(map[string]interface{}{"key": args[0], "deleted": "ok"}, "OK")
		})
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List every key on the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			keys, err := c.Keys(ctx)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(keys))
			for _, key := range keys {
				names = append(names, string(key))
			}

			if output == "json" {
				return render(map[string]interface{}{"keys": names}, "")
			}

			for _, name := range names {
				fmt.Println(name)
			}

			return nil
		})
	},
}

// withClient wires env config, flags and logging into a connected client and
// tears it down after fn returns.
func withClient(cmd *cobra.Command, fn func(context.Context, *client.Client) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	log, err := env.MakeLogger()
	if err != nil {
		return err
	}

	conf, err := env.LoadConfig(ctx)
	if err != nil {
		return err
	}

	opts := conf.ClientOptions()
	if addr != "" {
		opts.Addr = addr
	}
	opts.Log = log

	c, err := client.Dial(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if err := c.Close(); err != nil {
			log.Warn("Client did not close cleanly")
		}
	}()

	return fn(ctx, c)
}

// render prints either the raw line or a JSON document built from fields.
func render(fields map[string]interface{}, raw string) error {
	if output != "json" {
		if raw != "" {
			fmt.Println(raw)
		}

		return nil
	}

	doc := []byte(`{}`)

	var err error
	for key, value := range fields {
		if doc, err = sjson.SetBytes(doc, key, value); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintln(os.Stdout, string(doc))
	return err
}
