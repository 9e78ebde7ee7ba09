// Command pulsectl works on diagram data files directly: it compiles and
// renders diagrams for a role and edits nodes and edges through the same
// command handlers the API uses. A running API with the file backend picks
// up the changes through its directory watcher.
package main

import (
	"fmt"
	"os"

	"pulse-backend/application/commands/bus"
	commandhandlers "pulse-backend/application/commands/handlers"
	"pulse-backend/domain/org"
	"pulse-backend/infrastructure/messaging/local"
	"pulse-backend/infrastructure/persistence/filestore"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dataDir   string
	roleFlag  string
	direction string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "pulsectl",
	Short: "pulsectl — inspect and edit org diagrams",
	Long: Brand.Sprint("pulsectl") + " — compile, render and edit org diagrams\n" +
		Subtle.Sprint("Works on the JSON data directory used by the file storage backend"),
	SilenceUsage: true,
}

func init() {
	defaultDir := os.Getenv("DATA_DIR")
	if defaultDir == "" {
		defaultDir = "./data"
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", defaultDir, "Diagram data directory")
	rootCmd.PersistentFlags().StringVar(&roleFlag, "role", string(org.RoleAdmin), "Role to view diagrams as (admin, manager, viewer)")
	rootCmd.PersistentFlags().StringVar(&direction, "direction", "TD", "Flowchart direction")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log command handling")

	rootCmd.AddCommand(
		compileCmd(),
		renderCmd(),
		nodesCmd(),
		edgesCmd(),
	)
}

func logger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func role() (org.Role, error) {
	switch r := org.Role(roleFlag); r {
	case org.RoleAdmin, org.RoleManager, org.RoleViewer:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", roleFlag)
	}
}

func openStore() (*filestore.Store, error) {
	return filestore.NewStore(dataDir, logger())
}

// commandBus wires the command handlers over the file store
func commandBus(store *filestore.Store) (*bus.CommandBus, error) {
	l := logger()
	commands := bus.NewCommandBus()
	if err := commandhandlers.Register(commands, store, local.NewBus(nil, l), nil, l); err != nil {
		return nil, err
	}
	return commands, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		Bad.Fprintf(os.Stderr, "pulsectl: %v\n", err)
		os.Exit(1)
	}
}
