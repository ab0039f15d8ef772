package storage

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Files provides the line-oriented list files the moderation engine consults.
// Every getter re-reads its file so that edits take effect without a restart.
type Files struct {
	dataDir string
}

// New returns a Files rooted at dataDir
func New(dataDir string) *Files {
	return &Files{dataDir: dataDir}
}

// Blacklist returns the forbidden terms from blacklist.txt, lowercased.
// A missing file is an empty blacklist.
func (f *Files) Blacklist() []string {
	lines := f.load("blacklist.txt")
	for i, line := range lines {
		lines[i] = strings.ToLower(line)
	}
	return lines
}

// JailUsers returns the usernames confined to the jail channel
func (f *Files) JailUsers() []string {
	return f.load("jail_users.txt")
}

// JailNames returns the nicknames confined to the jail channel
func (f *Files) JailNames() []string {
	return f.load("jail_names.txt")
}

// AddJailUser appends a username to the jail list if not already present
func (f *Files) AddJailUser(username string) error {
	users := f.JailUsers()
	for _, u := range users {
		if u == username {
			return nil
		}
	}
	users = append(users, username)
	return writeLines(filepath.Join(f.dataDir, "jail_users.txt"), users)
}

// RemoveJailUser removes a username from the jail list.
// Returns true if the username was present.
func (f *Files) RemoveJailUser(username string) (bool, error) {
	users := f.JailUsers()
	kept := users[:0]
	found := false
	for _, u := range users {
		if u == username {
			found = true
			continue
		}
		kept = append(kept, u)
	}
	if !found {
		return false, nil
	}
	return true, writeLines(filepath.Join(f.dataDir, "jail_users.txt"), kept)
}

// load reads one list file. Read errors other than absence are logged and
// treated as an empty list so a bad file never blocks the checks that follow.
func (f *Files) load(name string) []string {
	path := filepath.Join(f.dataDir, name)
	lines, err := readLines(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Error reading %s: %v", path, err)
		}
		return nil
	}
	return lines
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func writeLines(path string, lines []string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	for _, line := range lines {
		if _, err := fmt.Fprintln(file, line); err != nil {
			return err
		}
	}
	return nil
}
