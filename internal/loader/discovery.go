package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/trade"
)

// DataFile is a trade file found in the data directory
type DataFile struct {
	Path    string
	Name    string
	Flow    trade.Flow
	Size    int64
	ModTime time.Time
}

// supportedExt lists the extensions ParseFile understands
var supportedExt = map[string]bool{".csv": true, ".txt": true, ".xlsx": true, ".xlsm": true}

// DiscoverFiles lists the CSV and XLSX files directly under dir whose flow
// can be told from the name (EXP_2024.csv, importacoes_sc.xlsx). Other
// files are returned in ignored. Results are sorted by name.
func DiscoverFiles(dir string) (files []DataFile, ignored []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasPrefix(name, "~$") || !supportedExt[strings.ToLower(filepath.Ext(name))] {
			continue
		}

		path := filepath.Join(dir, name)
		flow, ok := FlowFromFileName(name)
		if !ok {
			ignored = append(ignored, path)
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, DataFile{
			Path:    path,
			Name:    name,
			Flow:    flow,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, ignored, nil
}
