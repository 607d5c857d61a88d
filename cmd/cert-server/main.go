// Command cert-server prompts for a uid/password pair on stdin and serves
// it over a localhost TCP socket to cert.SocketManager clients.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yasu-a/manaba-clone/internal/cert"
	"github.com/yasu-a/manaba-clone/internal/logger"
	"github.com/yasu-a/manaba-clone/internal/manaba"
)

var addr string

func main() {
	cmd := &cobra.Command{
		Use:   "cert-server",
		Short: "Serve a single uid/password pair over a localhost TCP socket",
		RunE:  run,
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:9696", "address to listen on")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) error {
	log, err := logger.New(logger.Config{})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	uid, password, err := promptCredentials()
	if err != nil {
		return fmt.Errorf("read credentials: %w", err)
	}

	pairs := map[string]cert.LoginPair{
		manaba.Host: {UID: uid, Password: password},
	}

	return cert.Serve(addr, pairs, log)
}

func promptCredentials() (uid, password string, err error) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("uid: ")
	uidLine, err := reader.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("read uid: %w", err)
	}

	fmt.Print("pw: ")
	pwLine, err := reader.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("read pw: %w", err)
	}

	return strings.TrimSpace(uidLine), strings.TrimSpace(pwLine), nil
}
