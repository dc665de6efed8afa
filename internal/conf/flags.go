package conf

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/villedieurio/evened-web/internal/errors"
)

// BindFlags binds command line flags to configuration keys on the global
// viper instance, so a flag set on the command line overrides the config
// file and the environment. keys maps flag names to configuration keys.
func BindFlags(flags *pflag.FlagSet, keys map[string]string) error {
	return BindFlagsWith(viper.GetViper(), flags, keys)
}

// BindFlagsWith is BindFlags on a given viper instance.
func BindFlagsWith(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for name, key := range keys {
		flag := flags.Lookup(name)
		if flag == nil {
			return errors.Newf("flag --%s is not defined", name).
				Component("configuration").
				Category(errors.CategoryConfiguration).
				Context("key", key).
				Build()
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return errors.New(err).
				Component("configuration").
				Category(errors.CategoryConfiguration).
				Context("flag", name).
				Context("key", key).
				Build()
		}
	}
	return nil
}
