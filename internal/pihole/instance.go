package pihole

import (
	"errors"
	"log"
)

// Instance is one monitored Pi-hole, as resolved from configuration.
type Instance struct {
	Alias    string
	Address  string
	Password string
}

var (
	// ErrNoInstances is returned when no addresses are configured.
	ErrNoInstances = errors.New("no Pi-hole instances provided")
	// ErrCountMismatch is returned when the alias and address lists
	// have different lengths.
	ErrCountMismatch = errors.New("number of Pi-hole aliases does not match number of addresses")
)

// BuildInstances zips positionally matched alias, address and password
// lists into instances. Aliases and addresses must pair one-to-one;
// passwords may run short (instances without one are polled only after
// a later token is supplied, and a warning is logged). Duplicate
// addresses are dropped with a warning, first occurrence winning.
func BuildInstances(aliases, addresses, passwords []string) ([]Instance, error) {
	if len(addresses) == 0 {
		return nil, ErrNoInstances
	}
	if len(aliases) != len(addresses) {
		return nil, ErrCountMismatch
	}

	seen := make(map[string]bool, len(addresses))
	instances := make([]Instance, 0, len(addresses))
	for i, address := range addresses {
		if seen[address] {
			log.Printf("duplicate Pi-hole address provided (%s), skipping", address)
			continue
		}
		seen[address] = true

		password := ""
		if i < len(passwords) {
			password = passwords[i]
		}
		if password == "" {
			log.Printf("no password provided for %s, some data will not be available", aliases[i])
		}
		instances = append(instances, Instance{
			Alias:    aliases[i],
			Address:  address,
			Password: password,
		})
	}
	return instances, nil
}
