package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cellkv/cellkv/btree"
)

var (
	dbPath  string
	verbose bool
	noColor bool
	warnC   = color.New(color.FgYellow)
	errC    = color.New(color.FgRed, color.Bold)
	okC     = color.New(color.FgGreen)
)

var rootCmd = &cobra.Command{
	Use:   "cellkv",
	Short: "cellkv is a single-file, paged, write-ahead-logged key-value store",
	Long: `cellkv opens one database file per invocation, performs a single
operation (insert, get, update, delete, or scan), and exits. Configuration
can come from flags, environment variables prefixed CELLKV_, or a
cellkv.yaml/toml/json config file in the current directory.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			color.NoColor = true
		}
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
		return nil
	},
}

// Execute runs the cellkv command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "cellkv.db", "path to the database file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))

	rootCmd.AddCommand(insertCmd, getCmd, updateCmd, deleteCmd, scanCmd, statsCmd)
}

func initConfig() {
	viper.SetEnvPrefix("cellkv")
	viper.AutomaticEnv()

	viper.SetConfigName("cellkv")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			warnC.Fprintf(os.Stderr, "warning: could not read config file: %v\n", err)
		}
	}

	if viper.IsSet("db") {
		dbPath = viper.GetString("db")
	}
}

// openStore opens the database at dbPath for the duration of one command.
func openStore() (*btree.BTree, error) {
	bt, err := btree.New(btree.DefaultConfig(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	return bt, nil
}
