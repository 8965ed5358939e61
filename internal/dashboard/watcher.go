package dashboard

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/fsnotify/fsnotify"

	"stream-dashboard/internal/models"
)

// LoadFilterFile читает конфигурацию фильтров из JSON-файла.
// Отсутствующие поля берутся из defaults.
func LoadFilterFile(path string, defaults models.FilterConfig) (models.FilterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.FilterConfig{}, err
	}
	if len(data) == 0 {
		return models.FilterConfig{}, fmt.Errorf("filter file %s is empty", path)
	}

	cfg := defaults.Clone()
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return models.FilterConfig{}, fmt.Errorf("failed to parse filter file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return models.FilterConfig{}, fmt.Errorf("invalid filter file %s: %w", path, err)
	}
	return cfg, nil
}

// FilterWatcher применяет фильтры из файла при каждом его изменении.
// Наблюдается родительский каталог, чтобы переживать атомарную замену файла.
type FilterWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	defaults func() models.FilterConfig
	apply    func(models.FilterConfig) error
}

// NewFilterWatcher создает наблюдатель за файлом path
func NewFilterWatcher(path string, defaults func() models.FilterConfig, apply func(models.FilterConfig) error) (*FilterWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	return &FilterWatcher{
		path:     abs,
		watcher:  watcher,
		defaults: defaults,
		apply:    apply,
	}, nil
}

// Run обрабатывает события до отмены контекста
func (fw *FilterWatcher) Run(ctx context.Context) error {
	for {
		select {
		case evt, ok := <-fw.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != fw.path {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
				continue
			}
			fw.reload()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Filter watcher error: %v", err)

		case <-ctx.Done():
			return nil
		}
	}
}

// reload перечитывает файл. Пустой файл пропускается: запись через ">"
// сначала обрезает файл и дает два события.
func (fw *FilterWatcher) reload() {
	cfg, err := LoadFilterFile(fw.path, fw.defaults())
	if err != nil {
		log.Printf("Filter file not applied: %v", err)
		return
	}
	if err := fw.apply(cfg); err != nil {
		log.Printf("Failed to apply filters from %s: %v", fw.path, err)
		return
	}
	log.Printf("Filters reloaded from %s", fw.path)
}

// Path абсолютный путь наблюдаемого файла
func (fw *FilterWatcher) Path() string {
	return fw.path
}

// Close прекращает наблюдение
func (fw *FilterWatcher) Close() error {
	return fw.watcher.Close()
}
