package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"
)

const envPrefix = "MOESISIM_"

// intFlag returns the value of an integer flag. A flag that the user did not
// set on the command line falls back to the MOESISIM_<key> environment
// variable, and then to the flag default.
func intFlag(flags *pflag.FlagSet, name, key string) (int, error) {
	v, err := flags.GetInt(name)
	if err != nil {
		return 0, err
	}

	if flags.Changed(name) {
		return v, nil
	}

	s, ok := os.LookupEnv(envPrefix + key)
	if !ok || s == "" {
		return v, nil
	}

	v, err = strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s%s: %w", envPrefix, key, err)
	}

	return v, nil
}

// boolFlag is intFlag for switches.
func boolFlag(flags *pflag.FlagSet, name, key string) (bool, error) {
	v, err := flags.GetBool(name)
	if err != nil {
		return false, err
	}

	if flags.Changed(name) {
		return v, nil
	}

	s, ok := os.LookupEnv(envPrefix + key)
	if !ok || s == "" {
		return v, nil
	}

	v, err = strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("environment variable %s%s: %w", envPrefix, key, err)
	}

	return v, nil
}
