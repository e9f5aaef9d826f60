// Command otm sends and receives one-time messages through a relay.
//
//	otm send "the launch code is 0000"
//	echo secret | otm send --password hunter2 --expires 1h
//	otm receive 'https://otm.example/1b4e28ba-...#5fa5cc8b...'
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"otm.relay/internal/client"
	"otm.relay/internal/flow"
)

const (
	flagServer   = "server"
	flagBaseURL  = "base-url"
	flagTimeout  = "timeout"
	flagPassword = "password"
	flagExpires  = "expires"
)

func main() {
	if err := newApp(os.Stdin, os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(in io.Reader, out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "otm",
		Usage:     "send and receive burn-after-read messages",
		Reader:    in,
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagServer,
				Value:   "http://localhost:3001",
				Usage:   "relay address",
				EnvVars: []string{"OTM_SERVER"},
			},
			&cli.StringFlag{
				Name:    flagBaseURL,
				Usage:   "origin used in shared links (defaults to --server)",
				EnvVars: []string{"OTM_BASE_URL"},
			},
			&cli.DurationFlag{
				Name:  flagTimeout,
				Value: 30 * time.Second,
				Usage: "per-request timeout",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "send",
				Usage:     "encrypt a message and print its link",
				ArgsUsage: "[message]",
				Flags: []cli.Flag{
					passwordFlag(),
					&cli.StringFlag{
						Name:  flagExpires,
						Value: string(flow.DefaultExpiry),
						Usage: "lifetime: 1h, 6h, 12h, 24h, 3d or 7d",
					},
				},
				Action: sendAction,
			},
			{
				Name:      "receive",
				Usage:     "fetch, decrypt and burn a message",
				ArgsUsage: "<link|id>",
				Flags:     []cli.Flag{passwordFlag()},
				Action:    receiveAction,
			},
		},
	}
}

func passwordFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    flagPassword,
		Aliases: []string{"p"},
		Usage:   "password to encrypt or decrypt with",
	}
}

func newClient(cCtx *cli.Context) (*client.Client, error) {
	return client.New(cCtx.String(flagServer), client.WithTimeout(cCtx.Duration(flagTimeout)))
}

func sendAction(cCtx *cli.Context) error {
	expiry, err := flow.ParseExpiry(cCtx.String(flagExpires))
	if err != nil {
		return err
	}

	message := strings.Join(cCtx.Args().Slice(), " ")
	if message == "" {
		data, err := io.ReadAll(cCtx.App.Reader)
		if err != nil {
			return fmt.Errorf("reading message: %w", err)
		}
		message = strings.TrimRight(string(data), "\r\n")
	}

	c, err := newClient(cCtx)
	if err != nil {
		return err
	}

	baseURL := cCtx.String(flagBaseURL)
	if baseURL == "" {
		baseURL = cCtx.String(flagServer)
	}

	res, err := flow.NewSender(c, baseURL).Send(cCtx.Context, flow.SendRequest{
		Message:  message,
		Password: cCtx.String(flagPassword),
		Expiry:   expiry,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(cCtx.App.Writer, res.Link)
	if res.PasswordProtected {
		fmt.Fprintln(cCtx.App.ErrWriter, "Don't forget to share the password.")
	}
	fmt.Fprintf(cCtx.App.ErrWriter, "Expires %s\n", res.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

func receiveAction(cCtx *cli.Context) error {
	if cCtx.NArg() != 1 {
		return errors.New("expected exactly one link or id")
	}

	id, secret := flow.ParseLink(cCtx.Args().First())
	if secret == "" {
		secret = cCtx.String(flagPassword)
	}
	if secret == "" {
		p, err := promptPassword(cCtx)
		if err != nil {
			return err
		}
		secret = p
	}

	c, err := newClient(cCtx)
	if err != nil {
		return err
	}

	res, err := flow.NewReceiver(c).Receive(cCtx.Context, id, secret)
	if err != nil {
		return err
	}

	fmt.Fprintln(cCtx.App.Writer, res.Plaintext)
	if res.BurnErr != nil {
		fmt.Fprintf(cCtx.App.ErrWriter, "warning: %v; the server copy may still exist\n", res.BurnErr)
	}
	return nil
}

// promptPassword reads one line from the app's input after printing a
// prompt to its error stream.
func promptPassword(cCtx *cli.Context) (string, error) {
	fmt.Fprint(cCtx.App.ErrWriter, "Password: ")
	line, err := bufio.NewReader(cCtx.App.Reader).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
