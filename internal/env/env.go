// Package env reports which deployment the process runs in.
package env

import "os"

type Environment string

const (
	Local      Environment = "local"
	Production Environment = "production"

	Key string = "ENV"
)

func (e Environment) Valid() bool {
	switch e {
	case Local, Production:
		return true
	}
	return false
}

func (e Environment) IsProduction() bool { return e == Production }

// Parse maps a raw value to an Environment, defaulting to Local.
func Parse(v string) Environment {
	e := Environment(v)
	if !e.Valid() {
		return Local
	}
	return e
}

var Current = Parse(os.Getenv(Key))
