package media

import (
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Recording describes one recorded media file on disk.
type Recording struct {
	File   string `json:"file"`
	SizeKB int64  `json:"size_kb"`
	TS     string `json:"ts"`
}

var recordingExts = map[string]bool{
	".avi": true,
	".mp4": true,
}

// ListRecordings returns the recorded files under dir, newest first.
// A missing directory is an empty list, not an error.
func ListRecordings(dir string) ([]Recording, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Recording{}, nil
		}
		return nil, err
	}

	out := make([]Recording, 0, len(entries))
	mtimes := make(map[string]time.Time, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !recordingExts[filepath.Ext(entry.Name())] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		mtimes[path] = info.ModTime()
		out = append(out, Recording{
			File:   path,
			SizeKB: info.Size() / 1024,
			TS:     info.ModTime().Format("2006-01-02 15:04:05"),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return mtimes[out[i].File].After(mtimes[out[j].File])
	})
	return out, nil
}
