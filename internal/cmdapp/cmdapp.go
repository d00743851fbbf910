// Package cmdapp wires the command line application: config file and
// environment lookup, logger setup and panic-to-exit handling.
package cmdapp

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/heirko/go-contrib/logrusHelper"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFile = ""
	appName    = ""
)

// InitApplication prepares the config lookup for the app called name: a
// <name>.yaml file next to the binary, in the working directory or in
// $HOME/.<name>, overridden by <NAME>_ prefixed environment variables.
func InitApplication(rootCommand *cobra.Command, name string) {
	appName = name
	// STYLESHIFT_TRAIN_SAVETO is found by viper with key train.saveTo
	Config.SetEnvPrefix(name)
	Config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Config.AutomaticEnv()
	cobra.OnInitialize(func() { CheckOrPanic(initConfig(), "") })
	rootCommand.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file (default is "+name+".yaml)")
}

func initConfig() error {
	if configFile != "" {
		Config.SetConfigFile(configFile)
	} else {
		ex, err := os.Executable()
		if err != nil {
			return errors.Wrap(err, "can't get the app directory")
		}
		Config.AddConfigPath(filepath.Dir(ex))
		Config.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			Config.AddConfigPath(filepath.Join(home, "."+appName))
		}
		Config.SetConfigName(appName)
	}

	if err := Config.ReadInConfig(); err != nil {
		if configFile != "" {
			return errors.Wrapf(err, "can't read config %s", configFile)
		}
		Log.Warn("Can't read config: ", err)
	}
	if err := initLog(); err != nil {
		return err
	}
	if used := Config.ConfigFileUsed(); used != "" {
		Log.Info("Config loaded from: ", used)
	}
	return nil
}

func initLog() error {
	initDefaultLogConfig()
	c := logrusHelper.UnmarshalConfiguration(Config.Sub("logger"))
	if err := logrusHelper.SetConfig(Log, c); err != nil {
		return errors.Wrap(err, "can't init log")
	}
	// Sub does not see the environment.
	level, err := logrus.ParseLevel(Config.GetString("logger.level"))
	if err != nil {
		return errors.Wrap(err, "logger.level")
	}
	Log.SetLevel(level)
	return nil
}

func initDefaultLogConfig() {
	defaultLogConfig := map[string]interface{}{
		"level":                              "info",
		"formatter.name":                     "text",
		"formatter.options.full_timestamp":   true,
		"formatter.options.timestamp_format": "2006-01-02T15:04:05.000",
	}
	Config.SetDefault("logger", defaultLogConfig)
}

// SetDefaults registers a default for every key in defaults.
func SetDefaults(v *viper.Viper, defaults map[string]interface{}) {
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
}

func logPanic() {
	if r := recover(); r != nil {
		Log.Error(r)
		os.Exit(1)
	}
}

// Execute runs the main command and exits with status 1 on failure
func Execute(cmd *cobra.Command) {
	defer logPanic()
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}

// CheckOrPanic panics if err != nil
func CheckOrPanic(err error, msg string) {
	if err != nil {
		if msg == "" {
			panic(err)
		}
		panic(errors.Wrap(err, msg))
	}
}

// SignalContext returns a context cancelled on the first interrupt.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	fc := make(chan os.Signal, 1)
	signal.Notify(fc, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(fc)
		select {
		case sig := <-fc:
			Log.Warnf("Got %s, stopping", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
