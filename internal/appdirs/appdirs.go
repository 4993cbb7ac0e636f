package appdirs

import (
	"os"
	"path/filepath"
)

const (
	appDirName = "uigen"
)

func DataDir() (string, error) {
	if override := os.Getenv("UIGEN_DATA_DIR"); override != "" {
		return override, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appDirName), nil
}

// UserConfigPath is the per-user YAML config, merged under any project uigen.yaml.
func UserConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appDirName, "config.yaml"), nil
}

func DatabasePath(dataDir string) string {
	return filepath.Join(dataDir, "uigen.db")
}

func AnonWorkDir(dataDir string) string {
	return filepath.Join(dataDir, "anon")
}

func LogsDir(dataDir string) string {
	return filepath.Join(dataDir, "logs")
}
