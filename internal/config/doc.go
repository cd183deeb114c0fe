// Package config loads redline settings.
//
// Settings come from three sources, later ones overriding earlier:
//
//  1. Built-in defaults (Default)
//  2. A TOML or YAML file, chosen by extension (Load)
//  3. REDLINE_* environment variables (ApplyEnv)
//
// A missing file is not an error; defaults are used instead.
//
//	cfg, err := config.Load("redline.toml")
//	if err != nil {
//	    return err
//	}
//	if err := cfg.ApplyEnv(); err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
