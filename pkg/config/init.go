package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

var Config = DefaultConfiguration()

func DefaultConfiguration() *Configuration {
	return &Configuration{
		VersionFile: "version",
		Vcpkg: VcpkgConfiguration{
			Dir:             "vcpkg",
			OverlayPorts:    "vcpkg/ports",
			OverlayTriplets: "vcpkg/triplets",
		},
		Docs: DocsConfiguration{
			Dir:        "doc",
			SrcDir:     "src",
			Title:      "NVGT Documentation",
			WebDir:     filepath.Join("..", "web"),
			HHCPath:    `C:\Program Files (x86)\HTML Help Workshop\hhc.exe`,
			OSLDir:     "OSL",
			ReleaseDir: filepath.Join("..", "release"),
		},
		FTP: FTPConfiguration{
			Host:           "nvgt.gg:21",
			CredentialsEnv: "NVGT_FTP_CREDENTIALS",
		},
		Serve: ServeConfiguration{
			Port: 8100,
		},
		TZData: TZDataConfiguration{
			ZoneInfoDir: "/usr/share/zoneinfo",
			Output:      "generated_timezone_table_tzdata.cpp",
		},
	}
}

type Configuration struct {
	VersionFile string              `json:"version_file,omitempty"`
	Vcpkg       VcpkgConfiguration  `json:"vcpkg,omitempty"`
	Docs        DocsConfiguration   `json:"docs,omitempty"`
	FTP         FTPConfiguration    `json:"ftp,omitempty"`
	Serve       ServeConfiguration  `json:"serve_config,omitempty"`
	TZData      TZDataConfiguration `json:"tzdata,omitempty"`
}

type VcpkgConfiguration struct {
	Dir             string `json:"directory,omitempty"`
	OverlayPorts    string `json:"overlay_ports,omitempty"`
	OverlayTriplets string `json:"overlay_triplets,omitempty"`
	// Renames extends the builtin windows library rename table, old stem to new stem.
	Renames map[string]string `json:"windows_renames,omitempty"`
}

type DocsConfiguration struct {
	Dir        string `json:"directory,omitempty"`
	SrcDir     string `json:"source_directory,omitempty"`
	Title      string `json:"title,omitempty"`
	WebDir     string `json:"web_directory,omitempty"`
	HHCPath    string `json:"hhc_path,omitempty"`
	OSLDir     string `json:"osl_directory,omitempty"`
	ReleaseDir string `json:"release_directory,omitempty"`
	Minify     bool   `json:"minify,omitempty"`
}

type FTPConfiguration struct {
	Host           string `json:"host,omitempty"`
	CredentialsEnv string `json:"credentials_env,omitempty"`
}

type ServeConfiguration struct {
	Port int `json:"port"`
}

type TZDataConfiguration struct {
	ZoneInfoDir string `json:"zoneinfo_directory,omitempty"`
	Output      string `json:"output,omitempty"`
}

// Init loads .env files then decodes configpath over the defaults. A missing
// file keeps the defaults.
func Init(configpath string) error {
	for _, envFile := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		// godotenv.Load never overrides variables already set in the environment
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("could not load environment file %s: %w", envFile, err)
		}
	}

	if configpath == "" {
		configpath = "nvgtbuild.json"
	}

	_, err := os.Stat(configpath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("could not access configuration file %s: %w", configpath, err)
		}

		return nil
	}

	f, err := os.Open(configpath)
	if err != nil {
		return err
	}
	defer f.Close()

	err = json.NewDecoder(f).Decode(Config)
	if err != nil {
		return fmt.Errorf("could not decode configuration file %s: %w", configpath, err)
	}

	return nil
}
