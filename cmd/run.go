package cmd

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/degagne/gossh/pkg/sshclient"
)

var (
	runHost           string
	runPort           int
	runUser           string
	runKeyFiles       []string
	runSSHConfigPath  string
	runUseSSHConfig   bool
	runPasswordPrompt bool
	runInsecure       bool
	runRealtime       bool
	runOutputFile     string
	runJumpHost       string
)

// runCmd executes a command on a remote host.
var runCmd = &cobra.Command{
	Use:   "run [flags] -- command...",
	Short: "Execute a command on a remote host",
	Long: `Run a command on the remote host and print its combined output and
exit status. With --realtime the output is streamed line by line as it
arrives instead of being captured.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		command := strings.Join(args, " ")

		cfg, err := buildRunConfig()
		if err != nil {
			return err
		}

		if runJumpHost != "" {
			jumpCfg, err := buildHostConfig(runJumpHost)
			if err != nil {
				return err
			}
			tunnel, err := sshclient.OpenTunnel(cmd.Context(), cfg.Hostname, cfg.Port, *jumpCfg)
			if err != nil {
				return err
			}
			defer tunnel.Close()
			cfg.Sock = tunnel
		}

		var status int
		err = sshclient.WithClient(cmd.Context(), *cfg, func(client *sshclient.Client) error {
			if runRealtime {
				status, err = client.ExecuteRealtime(command)
				return err
			}

			var output string
			if runOutputFile != "" {
				f, err := os.Create(runOutputFile)
				if err != nil {
					return fmt.Errorf("creating output file: %w", err)
				}
				defer f.Close()
				output, status, err = client.ExecuteToFile(command, f)
				if err != nil {
					return err
				}
			} else {
				output, status, err = client.Execute(command)
				if err != nil {
					return err
				}
			}
			fmt.Print(output)
			return nil
		})
		if err != nil {
			return err
		}

		if status != 0 {
			os.Exit(status)
		}
		return nil
	},
}

func buildRunConfig() (*sshclient.ConnectConfig, error) {
	cfg, err := buildHostConfig(runHost)
	if err != nil {
		return nil, err
	}

	if runPort != 0 {
		cfg.Port = runPort
	}
	if runUser != "" {
		cfg.Username = runUser
	}
	if len(runKeyFiles) > 0 {
		cfg.KeyFilename = runKeyFiles
	}
	if runInsecure {
		cfg.InsecureIgnoreHostKey = true
	}

	if runPasswordPrompt {
		fmt.Fprintf(os.Stderr, "Password for %s: ", cfg.Hostname)
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}
		cfg.Password = string(password)
	}

	return cfg, nil
}

// buildHostConfig resolves host against the SSH client configuration file
// when enabled, falling back to bare defaults.
func buildHostConfig(host string) (*sshclient.ConnectConfig, error) {
	if runUseSSHConfig {
		cfg, err := sshclient.LoadSSHConfig(host, runSSHConfigPath)
		if err == nil {
			return cfg, nil
		}
		if runSSHConfigPath != "" {
			return nil, err
		}
		// No explicit path given; a missing default config is fine.
	}

	cfg := sshclient.DefaultConnectConfig()
	cfg.Hostname = host
	return &cfg, nil
}

func init() {
	runCmd.Flags().StringVar(&runHost, "host", "", "Remote host to connect to")
	runCmd.Flags().IntVar(&runPort, "port", 0, "Remote SSH port (default 22 or ssh_config)")
	runCmd.Flags().StringVar(&runUser, "user", "", "Username to authenticate as")
	runCmd.Flags().StringArrayVar(&runKeyFiles, "key", nil, "Private key file (repeatable)")
	runCmd.Flags().StringVar(&runSSHConfigPath, "ssh-config", "", "SSH client configuration file (default ~/.ssh/config)")
	runCmd.Flags().BoolVar(&runUseSSHConfig, "use-ssh-config", true, "Resolve the host through the SSH client configuration file")
	runCmd.Flags().BoolVar(&runPasswordPrompt, "password-prompt", false, "Prompt for a password")
	runCmd.Flags().BoolVar(&runInsecure, "insecure", false, "Skip host key verification")
	runCmd.Flags().BoolVar(&runRealtime, "realtime", false, "Stream output as it arrives instead of capturing it")
	runCmd.Flags().StringVar(&runOutputFile, "output", "", "Also write captured output to this file")
	runCmd.Flags().StringVar(&runJumpHost, "jump", "", "Connect through this intermediary host")

	runCmd.MarkFlagRequired("host")

	rootCmd.AddCommand(runCmd)
}
