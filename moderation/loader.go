package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"strings"

	"chat-backend/errors"
)

//go:embed censored/*
var censoredFS embed.FS

// Wordlist is the parsed content of the embedded dictionaries.
type Wordlist struct {
	Words     []string
	Languages []string
}

// LoadWordlist parses the embedded dictionaries, one .txt file per
// language (e.g. "en.txt"), into a deduplicated word list.
func LoadWordlist() (*Wordlist, error) {
	return loadWordlist(censoredFS, "censored")
}

func loadWordlist(fsys fs.FS, dir string) (*Wordlist, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var languages []string
	uniqueWords := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		// Track the language based on the filename (e.g. "fr.txt" -> "fr")
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fs.ReadFile(fsys, dir+"/"+entry.Name())
		if err != nil {
			return nil, err
		}

		// Use a scanner to handle different line endings (\n vs \r\n) correctly
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				uniqueWords[line] = struct{}{}
			}
		}

		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(uniqueWords) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(uniqueWords))
	for w := range uniqueWords {
		words = append(words, w)
	}

	return &Wordlist{
		Words:     words,
		Languages: languages,
	}, nil
}
