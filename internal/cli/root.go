// internal/cli/root.go
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/edulab-kr/evalassist/internal/config"
	"github.com/edulab-kr/evalassist/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Options 所有子命令共享的状态
type Options struct {
	v      *viper.Viper
	Out    io.Writer
	ErrOut io.Writer
}

// NewRootCmd 创建 evalctl 根命令
func NewRootCmd(version string) *cobra.Command {
	opts := &Options{
		v:      viper.New(),
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}

	rootCmd := &cobra.Command{
		Use:   "evalctl",
		Short: "Digitize assessment documents and refine evaluation wording",
		Long: `evalctl talks to the same document digitization and completion endpoints as the
evalassist server, without running the server.

Settings are read in this order: flags, environment (UPSTAGE_API_KEY, ...),
the --config YAML file, then built-in defaults.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.Out = cmd.OutOrStdout()
			opts.ErrOut = cmd.ErrOrStderr()
			return opts.readConfigFile()
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "YAML config file")
	flags.String("api-key", "", "Upstage API key (default $UPSTAGE_API_KEY)")
	flags.Duration("timeout", config.DefaultRequestTimeout, "Timeout for each remote call")
	flags.StringP("output", "o", "human", "Output format (human, json, yaml)")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")

	opts.v.BindPFlag("config", flags.Lookup("config"))
	opts.v.BindPFlag("api_key", flags.Lookup("api-key"))
	opts.v.BindPFlag("timeout", flags.Lookup("timeout"))
	opts.v.BindPFlag("output", flags.Lookup("output"))
	opts.v.BindPFlag("log_level", flags.Lookup("log-level"))

	opts.v.BindEnv("api_key", "UPSTAGE_API_KEY")
	opts.v.BindEnv("timeout", "REQUEST_TIMEOUT")
	opts.v.BindEnv("digitize_url", "UPSTAGE_DIGITIZE_URL")
	opts.v.BindEnv("digitize_model", "UPSTAGE_DIGITIZE_MODEL")
	opts.v.BindEnv("base_url", "UPSTAGE_BASE_URL")
	opts.v.BindEnv("chat_model", "UPSTAGE_CHAT_MODEL")

	rootCmd.AddCommand(
		newDigitizeCmd(opts),
		newImproveCmd(opts),
		newCriteriaCmd(opts),
		newCriterionCmd(opts),
		newVersionCmd(version),
	)

	return rootCmd
}

// readConfigFile 加载 --config 指定的 YAML
func (o *Options) readConfigFile() error {
	path := o.v.GetString("config")
	if path == "" {
		return nil
	}

	o.v.SetConfigFile(path)
	o.v.SetConfigType("yaml")
	if err := o.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Config 合并各层设置得到服务配置
func (o *Options) Config() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if key := o.v.GetString("api_key"); key != "" {
		cfg.UpstageAPIKey = key
	}
	if s := o.v.GetString("digitize_url"); s != "" {
		cfg.DigitizeURL = s
	}
	if s := o.v.GetString("digitize_model"); s != "" {
		cfg.DigitizeModel = s
	}
	if s := o.v.GetString("base_url"); s != "" {
		cfg.CompletionBaseURL = s
	}
	if s := o.v.GetString("chat_model"); s != "" {
		cfg.CompletionModel = s
	}
	if d := o.v.GetDuration("timeout"); d > 0 {
		cfg.RequestTimeout = d
	}

	logger := utils.GetLogger()
	logger.SetOutput(o.ErrOut)
	logger.SetLogLevel(utils.ParseLogLevel(o.v.GetString("log_level")))
	return cfg, cfg.Validate()
}

// OutputFormat 规范化后的输出格式
func (o *Options) OutputFormat() (string, error) {
	format := strings.ToLower(o.v.GetString("output"))
	switch format {
	case "", "human":
		return "human", nil
	case "json", "yaml":
		return format, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want human, json or yaml)", format)
	}
}

// Timeout 每次远程调用的超时
func (o *Options) Timeout() time.Duration {
	if d := o.v.GetDuration("timeout"); d > 0 {
		return d
	}
	return config.DefaultRequestTimeout
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "evalctl version %s\n", version)
		},
	}
}
