package repository

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"

	"github.com/vportn/golinks/internal/models"
	"go.uber.org/zap"
)

// journalRecord представляет одну строку JSON-журнала
type journalRecord struct {
	Type  string                 `json:"type"`
	Link  *models.Link           `json:"link,omitempty"`
	Event *models.AnalyticsEvent `json:"event,omitempty"`
	ID    string                 `json:"id,omitempty"`
}

const (
	recordLink   = "link"
	recordEvent  = "event"
	recordDelete = "delete"
)

// FileRepository реализует интерфейс Repository поверх MemoryRepository,
// дописывая каждое изменение в JSON-журнал. При загрузке журнал
// воспроизводится, поздние записи ссылки перекрывают ранние.
type FileRepository struct {
	mem      *MemoryRepository
	filePath string
	logger   *zap.Logger
	fileMu   sync.Mutex
}

// NewFileRepository создаёт FileRepository и загружает существующий журнал
func NewFileRepository(filePath string, logger *zap.Logger) (*FileRepository, error) {
	repo := &FileRepository{
		mem:      NewMemoryRepository(),
		filePath: filePath,
		logger:   logger,
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return repo, nil
		}
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record journalRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			// Пропускаем некорректные строки и логируем это
			repo.logger.Warn("Skipping invalid journal line", zap.String("line", string(scanner.Bytes())), zap.Error(err))
			continue
		}
		repo.replay(record)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return repo, nil
}

// replay применяет одну запись журнала к состоянию в памяти
func (r *FileRepository) replay(record journalRecord) {
	switch record.Type {
	case recordLink:
		if record.Link == nil {
			return
		}
		link := *record.Link
		r.mem.mutex.Lock()
		r.mem.links[link.ID] = link
		r.mem.codes[link.ShortCode] = link.ID
		r.mem.mutex.Unlock()
	case recordEvent:
		if record.Event == nil {
			return
		}
		if err := r.mem.SaveEvent(*record.Event); err != nil {
			r.logger.Warn("Failed to replay event", zap.Error(err))
		}
	case recordDelete:
		if err := r.mem.DeleteLink(record.ID); err != nil {
			r.logger.Warn("Failed to replay delete", zap.String("id", record.ID), zap.Error(err))
		}
	default:
		r.logger.Warn("Unknown journal record type", zap.String("type", record.Type))
	}
}

// appendRecord дописывает запись в конец журнала
func (r *FileRepository) appendRecord(record journalRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	r.fileMu.Lock()
	defer r.fileMu.Unlock()

	file, err := os.OpenFile(r.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.Write(data)
	return err
}

// CreateLink сохраняет новую ссылку в память и журнал
func (r *FileRepository) CreateLink(link models.Link) error {
	if err := r.mem.CreateLink(link); err != nil {
		return err
	}
	return r.appendRecord(journalRecord{Type: recordLink, Link: &link})
}

// GetLinkByID возвращает ссылку по идентификатору
func (r *FileRepository) GetLinkByID(id string) (models.Link, bool) {
	return r.mem.GetLinkByID(id)
}

// GetLinkByCode возвращает ссылку по короткому коду
func (r *FileRepository) GetLinkByCode(code string) (models.Link, bool) {
	return r.mem.GetLinkByCode(code)
}

// CodeExists сообщает, занят ли короткий код
func (r *FileRepository) CodeExists(code string) bool {
	return r.mem.CodeExists(code)
}

// GetLinksByUserID возвращает ссылки пользователя, новые первыми
func (r *FileRepository) GetLinksByUserID(userID string) ([]models.Link, error) {
	return r.mem.GetLinksByUserID(userID)
}

// UpdateLink сохраняет изменённую ссылку и журналирует её новое состояние
func (r *FileRepository) UpdateLink(link models.Link) error {
	if err := r.mem.UpdateLink(link); err != nil {
		return err
	}
	updated, _ := r.mem.GetLinkByID(link.ID)
	return r.appendRecord(journalRecord{Type: recordLink, Link: &updated})
}

// DeleteLink удаляет ссылку; события аналитики остаются в журнале
func (r *FileRepository) DeleteLink(id string) error {
	if err := r.mem.DeleteLink(id); err != nil {
		return err
	}
	return r.appendRecord(journalRecord{Type: recordDelete, ID: id})
}

// IncrementClicks увеличивает счётчик и журналирует обновлённую ссылку,
// чтобы счётчик пережил перезапуск
func (r *FileRepository) IncrementClicks(id string) error {
	if err := r.mem.IncrementClicks(id); err != nil {
		return err
	}
	updated, _ := r.mem.GetLinkByID(id)
	return r.appendRecord(journalRecord{Type: recordLink, Link: &updated})
}

// SaveEvent сохраняет событие аналитики в память и журнал
func (r *FileRepository) SaveEvent(event models.AnalyticsEvent) error {
	if err := r.mem.SaveEvent(event); err != nil {
		return err
	}
	return r.appendRecord(journalRecord{Type: recordEvent, Event: &event})
}

// GetEventsByLinkID возвращает события ссылки, новые первыми
func (r *FileRepository) GetEventsByLinkID(linkID string, limit int) ([]models.AnalyticsEvent, error) {
	return r.mem.GetEventsByLinkID(linkID, limit)
}

// Stats возвращает количество ссылок и уникальных пользователей
func (r *FileRepository) Stats() (models.ServiceStats, error) {
	return r.mem.Stats()
}
