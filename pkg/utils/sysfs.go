package utils

import (
	"os"
	"strings"
)

// ReadSysfsFile reads a file from the sysfs and returns its contents as a
// trimmed string.
func ReadSysfsFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteSysfsFile writes a trigger value to a sysfs control file. The
// permission argument only applies when the path does not already exist,
// which for real sysfs attributes is never.
func WriteSysfsFile(path, value string) error {
	return os.WriteFile(path, []byte(value), 0644)
}
