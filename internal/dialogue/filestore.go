package dialogue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// State — сериализуемое представление состояния диалогов.
type State struct {
	Threads []*Thread `json:"threads"`
}

// FileStore хранит состояние диалоговых цепочек в JSON-файле.
type FileStore struct {
	path string
}

// NewFileStore создаёт новый файловый стор.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load читает сохранённые цепочки. Отсутствующий файл — не ошибка.
func (s *FileStore) Load() ([]*Thread, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read threads file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		// Повреждённый файл не должен останавливать бота: начинаем без
		// цепочек, испорченный файл сохраняем рядом для диагностики.
		brokenPath := s.path + ".broken"
		_ = os.WriteFile(brokenPath, data, 0644)
		return nil, nil
	}
	return state.Threads, nil
}

// Save записывает цепочки в файл атомарно (через временный файл).
func (s *FileStore) Save(threads []*Thread) error {
	data, err := json.MarshalIndent(State{Threads: threads}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal threads: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create threads directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp threads file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp threads file: %w", err)
	}
	return nil
}
