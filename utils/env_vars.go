package utils

import (
	"log"
	"os"
	"strconv"
)

func GetRequiredStringEnv(envVar string) string {
	envValue, ok := os.LookupEnv(envVar)
	if !ok || envValue == "" {
		log.Fatalf("%s environment variable is required", envVar)
	}
	return envValue
}

func GetStringEnv(envVar string, defaultValue string) string {
	envValue, ok := os.LookupEnv(envVar)
	if !ok || envValue == "" {
		return defaultValue
	}
	return envValue
}

func GetBoolEnv(envVar string, defaultValue bool) bool {
	envValue, ok := os.LookupEnv(envVar)
	if !ok || envValue == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(envValue)
	if err != nil {
		log.Fatalf("%s environment variable is not valid: '%s' is not a bool", envVar, envValue)
	}
	return boolValue
}
