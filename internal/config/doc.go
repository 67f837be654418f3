// Package config provides configuration loading and validation
// for the speech recorder service.
package config
