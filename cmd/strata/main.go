package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/stratadb/strata"
	"github.com/stratadb/strata/command"
	"github.com/stratadb/strata/db"
	"github.com/stratadb/strata/ps"
)

func main() {
	dir := flag.String("dir", "", "state directory (empty = in-memory)")
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg := db.DefaultConfig()
	if *configPath != "" {
		loaded, err := db.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	var (
		store *ps.Store
		err   error
	)
	if *dir != "" {
		store, err = ps.NewFileStore(*dir)
	} else {
		store, err = ps.NewMemoryStore()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	engine := strata.Open(store).Engine(cfg)
	interp := command.New(engine)

	prompt := liner.NewLiner()
	defer prompt.Close()
	prompt.SetCtrlCAborts(true)

	for {
		line, err := prompt.Prompt("strata> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				return
			}
			fmt.Fprintln(os.Stderr, "error:", err)
			return
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		prompt.AppendHistory(line)

		switch strings.ToUpper(trimmed) {
		case "EXIT", "QUIT":
			return
		}

		result, err := interp.Execute(line)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		printResult(result)
	}
}

func printResult(result any) {
	switch v := result.(type) {
	case nil:
		fmt.Println("ok")
	case []string:
		if len(v) == 0 {
			fmt.Println("(none)")
			return
		}
		for _, item := range v {
			fmt.Println(item)
		}
	default:
		fmt.Println(v)
	}
}
