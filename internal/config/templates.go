package config

import (
	"fmt"
	"os"
)

func Template() string { return configTemplate }

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(configTemplate), 0o600)
}

const configTemplate = `[analysis]
# rule matched against the two captures
root_rule = "protocol"
# optional TOML grammar replacing the built-in AMQP 0-9-1 grammar
grammar_file = ""
# text | json
format = "text"
max_capture_bytes = 268435456
# prometheus textfile written after each CLI run
metrics_textfile = ""

[server]
addr = ":9780"
cors_origins = ["http://localhost:3000"]
max_upload_bytes = 67108864
`
