package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/okulov/mindcast_bot/internal/post"
)

// State — сериализуемое представление истории генераций.
type State struct {
	History         []post.GenerationRecord `json:"history"`
	ThemeFrequency  map[string]int          `json:"theme_frequency"`
	FormatFrequency map[string]int          `json:"format_frequency"`
}

// FileStore хранит историю генераций в JSON-файле.
// Save сериализован мьютексом: оба цикла бота пишут в один файл.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore создаёт новый файловый стор.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load читает историю из файла и восстанавливает Ring указанного размера.
// Отсутствующий файл — не ошибка: возвращается пустая история.
func (s *FileStore) Load(max int) (*Ring, error) {
	ring := NewRing(max)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ring, nil
		}
		return nil, fmt.Errorf("read history file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		// Повреждённый файл не должен останавливать бота: начинаем с пустой
		// истории, а испорченный файл сохраняем рядом для диагностики.
		brokenPath := s.path + ".broken"
		_ = os.WriteFile(brokenPath, data, 0644)
		return ring, nil
	}

	for _, rec := range state.History {
		ring.Add(rec)
	}
	return ring, nil
}

// Save записывает историю в файл атомарно (через временный файл).
func (s *FileStore) Save(ring *Ring) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{
		History:         ring.Records(),
		ThemeFrequency:  make(map[string]int),
		FormatFrequency: make(map[string]int),
	}
	for _, rec := range state.History {
		state.ThemeFrequency[rec.Theme]++
		state.FormatFrequency[rec.Format]++
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp history file: %w", err)
	}

	// Переименование атомарно на большинстве файловых систем.
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp history file: %w", err)
	}
	return nil
}
