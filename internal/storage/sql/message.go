package sql

import (
	"errors"

	"gorm.io/gorm"

	"poofmail/backend/internal/domain"
	"poofmail/backend/internal/pagination"
	"poofmail/backend/internal/storage"
)

// viewScope 把方向视图翻译为查询条件。
// received 视图把空 type 的历史数据当作收件。
func viewScope(view domain.MessageView) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch view {
		case domain.ViewSent:
			return db.Where("type = ?", domain.MessageTypeSent)
		case domain.ViewAll:
			return db
		default:
			return db.Where("(type <> ? OR type IS NULL OR type = '')", domain.MessageTypeSent)
		}
	}
}

// SaveMessage 保存邮件信息。
func (s *Store) SaveMessage(message *domain.Message) error {
	if _, err := s.GetMailbox(message.MailboxID); err != nil {
		return err
	}
	return s.gormDB.Save(message).Error
}

// GetMessage 获取单封邮件（含附件）。
func (s *Store) GetMessage(mailboxID, messageID string) (*domain.Message, error) {
	var msg domain.Message
	err := s.gormDB.Preload("Attachments").First(&msg, "mailbox_id = ? AND id = ?", mailboxID, messageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessagesKeyset 按 (receivedAt DESC, id DESC) 返回视图内最多 limit 封邮件。
// 游标条件使用行比较语义：received_at 更小，或相等时 id 更小。
func (s *Store) ListMessagesKeyset(mailboxID string, cursor *pagination.Cursor, limit int, view domain.MessageView) ([]domain.Message, error) {
	if _, err := s.GetMailbox(mailboxID); err != nil {
		return nil, err
	}

	query := s.gormDB.
		Preload("Attachments").
		Scopes(viewScope(view)).
		Where("mailbox_id = ?", mailboxID).
		Order("received_at DESC, id DESC")

	if cursor != nil {
		query = query.Where(
			"(received_at < ? OR (received_at = ? AND id < ?))",
			cursor.ReceivedAt, cursor.ReceivedAt, cursor.ID,
		)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var messages []domain.Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// CountMessages 返回视图内的邮件总数（不受游标影响）。
func (s *Store) CountMessages(mailboxID string, view domain.MessageView) (int64, error) {
	if _, err := s.GetMailbox(mailboxID); err != nil {
		return 0, err
	}

	var count int64
	err := s.gormDB.Model(&domain.Message{}).
		Scopes(viewScope(view)).
		Where("mailbox_id = ?", mailboxID).
		Count(&count).Error
	return count, err
}

// MarkMessageRead 将邮件标记为已读。
func (s *Store) MarkMessageRead(mailboxID, messageID string) error {
	result := s.gormDB.Model(&domain.Message{}).
		Where("mailbox_id = ? AND id = ?", mailboxID, messageID).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrMessageNotFound
	}
	return nil
}

// DeleteMessage 删除指定邮件，级联删除其附件与分享链接。
func (s *Store) DeleteMessage(mailboxID, messageID string) error {
	return s.gormDB.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&domain.Message{}, "mailbox_id = ? AND id = ?", mailboxID, messageID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return storage.ErrMessageNotFound
		}
		if err := tx.Delete(&domain.Attachment{}, "message_id = ?", messageID).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.MessageShare{}, "message_id = ?", messageID).Error
	})
}

// DeleteAllMessages 删除邮箱下的全部邮件，返回删除数量。
func (s *Store) DeleteAllMessages(mailboxID string) (int, error) {
	if _, err := s.GetMailbox(mailboxID); err != nil {
		return 0, err
	}

	var count int
	err := s.gormDB.Transaction(func(tx *gorm.DB) error {
		// 附件按邮件ID子查询先删，邮件行删掉后就找不回来了
		sub := tx.Model(&domain.Message{}).Select("id").Where("mailbox_id = ?", mailboxID)
		if err := tx.Delete(&domain.Attachment{}, "message_id IN (?)", sub).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.Message{}, "mailbox_id = ?", mailboxID)
		if result.Error != nil {
			return result.Error
		}
		count = int(result.RowsAffected)
		return tx.Delete(&domain.MessageShare{}, "mailbox_id = ?", mailboxID).Error
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
