package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/joho/godotenv"
	"io"
	"io/fs"
	"log"
	"os"
)

const defaultConfigFile = "conf/config.json"

type Config struct {
	YouTube struct {
		Key        string `json:"key"`
		BaseUrl    string `json:"baseUrl"`
		RegionCode string `json:"regionCode"`
		MaxResults int    `json:"maxResults"`
	} `json:"youtube.com"`
	Http struct {
		Listen string `json:"listen"`
		// Timeout is the upstream request timeout in seconds; 0 disables it.
		Timeout int `json:"timeout"`
	} `json:"http"`
	Database string `json:"database"`
	Feed     struct {
		AppendOnFreshSearch bool `json:"appendOnFreshSearch"`
	} `json:"feed"`
	Thumbnail struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"thumbnail"`
	Debug struct {
		PrettyJson bool `json:"prettyJson"`
	} `json:"debug"`
}

func DefaultConfig() Config {
	var cfg Config
	cfg.YouTube.BaseUrl = defaultYouTubeBaseUrl
	cfg.YouTube.RegionCode = "US"
	cfg.YouTube.MaxResults = PageSize
	cfg.Http.Listen = ":8081"
	cfg.Thumbnail.Width = 200
	cfg.Thumbnail.Height = 150
	return cfg
}

// loadConfig overlays the JSON file at path onto cfg. A missing file leaves
// cfg untouched.
func loadConfig(path string, cfg *Config) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	decoder := json.NewDecoder(f)
	switch err := decoder.Decode(cfg).(type) {
	case nil:
		return nil
	case *json.SyntaxError:
		if _, serr := f.Seek(0, io.SeekStart); serr != nil {
			return fmt.Errorf("unable to decode configuration file %s: %w", path, err)
		}
		pos := findPos(bufio.NewReader(f), int(err.Offset))
		return fmt.Errorf("unable to decode configuration file %s (Line: %d, Pos: %d): %w", path, pos.line, pos.pos, err)
	default:
		return fmt.Errorf("unable to decode configuration file %s: %w", path, err)
	}
}

type FilePos struct {
	line int
	pos  int
}

func findPos(file *bufio.Reader, offset int) FilePos {
	p := FilePos{line: 1, pos: offset}
	var lineLen int
	for line, err := file.ReadBytes('\n'); len(line) > 0 && err == nil; line, err = file.ReadBytes('\n') {
		if p.pos < len(line) {
			return p
		}
		lineLen += len(line)
		if line[len(line)-1] == '\n' {
			p.line += 1
			p.pos -= lineLen
			lineLen = 0
		}
	}
	return p
}

// loadDotEnv reads .env.local and .env from the working directory. Variables
// already present in the environment win.
func loadDotEnv() {
	for _, p := range []string{".env.local", ".env"} {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			log.Printf("failed to load %s: %v", p, err)
		} else {
			log.Printf("loaded env from %s", p)
		}
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		cfg.YouTube.Key = v
	}
	if v := os.Getenv("VIDSEARCH_LISTEN"); v != "" {
		cfg.Http.Listen = v
	}
}
