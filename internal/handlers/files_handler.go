package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
)

// FilesHandler lists the archived documents on disk.
type FilesHandler struct {
	config *common.Config
	logger arbor.ILogger
}

func NewFilesHandler(config *common.Config, logger arbor.ILogger) *FilesHandler {
	return &FilesHandler{
		config: config,
		logger: logger,
	}
}

type archivedFile struct {
	Symbol   string    `json:"symbol"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// ListFilesHandler handles GET /api/files. The archive layout is one
// directory per symbol with flat files inside.
func (h *FilesHandler) ListFilesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	files := []archivedFile{}
	root := h.config.Archive.Dir

	symbols, err := os.ReadDir(root)
	if err != nil && !os.IsNotExist(err) {
		h.logger.Warn().Err(err).Str("dir", root).Msg("Failed to read archive directory")
		WriteError(w, http.StatusInternalServerError, "failed to read archive directory")
		return
	}

	for _, symbolDir := range symbols {
		if !symbolDir.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(root, symbolDir.Name()))
		if err != nil {
			continue
		}
		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil || entry.IsDir() {
				continue
			}
			files = append(files, archivedFile{
				Symbol:   symbolDir.Name(),
				Name:     entry.Name(),
				Size:     info.Size(),
				Modified: info.ModTime(),
			})
		}
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].Symbol != files[j].Symbol {
			return files[i].Symbol < files[j].Symbol
		}
		return files[i].Name < files[j].Name
	})

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(files),
		"files": files,
	})
}
