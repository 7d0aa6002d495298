package db

import (
	"fmt"
	"strings"
)

type Driver string

const (
	DriverMongo    Driver = "mongo"
	DriverPostgres Driver = "postgres"
	DriverBolt     Driver = "bolt"
)

// DriverFromURL picks the store backend from the connection string scheme.
func DriverFromURL(dbURL string) (Driver, error) {
	scheme, _, found := strings.Cut(dbURL, "://")
	if !found {
		return "", fmt.Errorf("invalid database url, scheme missing: [%s]", dbURL)
	}

	switch strings.ToLower(scheme) {
	case "mongodb", "mongodb+srv":
		return DriverMongo, nil
	case "postgres", "postgresql":
		return DriverPostgres, nil
	case "bolt":
		return DriverBolt, nil
	default:
		return "", fmt.Errorf("unsupported database url scheme: [%s]", scheme)
	}
}
