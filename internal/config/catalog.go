package config

import (
	"fmt"
	"os"
	"slices"
	"sync"

	"eventbot/internal/logger"

	"github.com/goccy/go-yaml"
)

type (
	// Catalog хранит перезагружаемый каталог услуг: списки исполнителей,
	// программ и временных слотов. Обновляется на лету при изменении файла.
	Catalog struct {
		mu   sync.RWMutex
		data catalogData
	}

	catalogData struct {
		Performers    []string            `yaml:"performers"`
		Categories    []string            `yaml:"program_categories"`
		Subcategories map[string][]string `yaml:"program_subcategories"`
		// пусто - сетка слотов строится автоматически
		Slots []string `yaml:"time_slots"`
	}
)

func InitCatalog(catalogPath string) *Catalog {
	c := &Catalog{}
	if err := c.Update(catalogPath); err != nil {
		logger.Crit("Не удалось загрузить каталог услуг:", err)
	}
	return c
}

// Update перечитывает каталог из файла. При ошибке предыдущие данные
// остаются без изменений.
func (c *Catalog) Update(catalogPath string) error {
	input, err := os.Open(catalogPath)
	if err != nil {
		return err
	}
	defer input.Close()

	var data catalogData
	if err = yaml.NewDecoder(input).Decode(&data); err != nil {
		return err
	}

	if len(data.Performers) == 0 {
		return fmt.Errorf("в каталоге не задан список исполнителей")
	}
	if len(data.Categories) == 0 {
		return fmt.Errorf("в каталоге не задан список программ")
	}
	if len(data.Slots) == 0 {
		data.Slots = defaultSlots()
	}

	c.mu.Lock()
	c.data = data
	c.mu.Unlock()

	logger.Info("Каталог услуг загружен:", len(data.Performers), "исполнителей,", len(data.Categories), "программ")
	return nil
}

func (c *Catalog) Performers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.data.Performers)
}

func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.data.Categories)
}

func (c *Catalog) Subcategories(category string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.data.Subcategories[category])
}

func (c *Catalog) Slots() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.data.Slots)
}

func (c *Catalog) HasSlot(slot string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Contains(c.data.Slots, slot)
}

// сетка получасовых слотов 09:00-20:00, последний слот 20:30 исключен
func defaultSlots() []string {
	var slots []string
	for h := 9; h <= 20; h++ {
		for _, m := range []int{0, 30} {
			if h == 20 && m == 30 {
				continue
			}
			slots = append(slots, fmt.Sprintf("%02d:%02d", h, m))
		}
	}
	return slots
}
