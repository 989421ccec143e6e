package mdb

import (
	"fmt"
	"time"

	"filebot/internal/models"
)

type userDoc struct {
	ID        int64     `bson:"_id"`
	Username  string    `bson:"username,omitempty"`
	FirstName string    `bson:"first_name,omitempty"`
	Language  string    `bson:"language,omitempty"`
	Caption   string    `bson:"caption,omitempty"`
	Banned    bool      `bson:"banned,omitempty"`
	CreatedAt time.Time `bson:"created_at,omitempty"`
}

func (d userDoc) toModel() models.User {
	return models.User{
		ID:        d.ID,
		Username:  d.Username,
		FirstName: d.FirstName,
		Language:  d.Language,
		Caption:   d.Caption,
		Banned:    d.Banned,
		CreatedAt: d.CreatedAt,
	}
}

type fileDoc struct {
	ID               int64     `bson:"_id"`
	UploaderID       int64     `bson:"uploader_id"`
	FileID           string    `bson:"file_id"`
	FileType         string    `bson:"file_type"`
	Caption          string    `bson:"caption,omitempty"`
	StorageChatID    int64     `bson:"storage_chat_id"`
	StorageMessageID int       `bson:"message_id_in_storage"`
	Token            string    `bson:"token"`
	CreatedAt        time.Time `bson:"created_at"`
}

func newFileDoc(f *models.FileRecord) fileDoc {
	return fileDoc{
		ID:               f.ID,
		UploaderID:       f.UploaderID,
		FileID:           f.Handle,
		FileType:         string(f.Kind),
		Caption:          f.Caption,
		StorageChatID:    f.Storage.ChatID,
		StorageMessageID: f.Storage.MessageID,
		Token:            f.Token,
		CreatedAt:        f.CreatedAt,
	}
}

func (d fileDoc) toModel() models.FileRecord {
	return models.FileRecord{
		ID:         d.ID,
		UploaderID: d.UploaderID,
		Handle:     d.FileID,
		Kind:       models.MediaKind(d.FileType),
		Caption:    d.Caption,
		Storage:    models.StorageRef{ChatID: d.StorageChatID, MessageID: d.StorageMessageID},
		Token:      d.Token,
		CreatedAt:  d.CreatedAt,
	}
}

// itemContent is the stored form of a prize; which fields are set depends on
// the item_type discriminator of the owning code
type itemContent struct {
	Text     string   `bson:"text,omitempty"`
	FileID   string   `bson:"file_id,omitempty"`
	FileType string   `bson:"file_type,omitempty"`
	Codes    []string `bson:"codes,omitempty"`
}

type codeDoc struct {
	ID              string      `bson:"_id"`
	ItemType        string      `bson:"item_type"`
	ItemContent     itemContent `bson:"item_content"`
	RedemptionLimit int         `bson:"redemption_limit"`
	RedemptionCount int         `bson:"redemption_count"`
	RedeemedBy      []int64     `bson:"redeemed_by"`
	CreatorID       int64       `bson:"creator_id"`
	CreatedAt       time.Time   `bson:"created_at"`
}

func newCodeDoc(c *models.RedeemCode) (codeDoc, error) {
	doc := codeDoc{
		ID:              c.Code,
		RedemptionLimit: c.Limit,
		RedemptionCount: c.Count,
		RedeemedBy:      append([]int64{}, c.RedeemedBy...),
		CreatorID:       c.CreatorID,
		CreatedAt:       c.CreatedAt,
	}

	switch p := c.Prize.(type) {
	case models.TextPrize:
		doc.ItemType = string(models.PrizeText)
		doc.ItemContent.Text = p.Text
	case models.FilePrize:
		doc.ItemType = string(models.PrizeFile)
		doc.ItemContent.FileID = p.Handle
		doc.ItemContent.FileType = string(p.Kind)
	case models.PoolPrize:
		doc.ItemType = string(models.PrizePool)
		doc.ItemContent.Codes = append([]string{}, p.Items...)
	default:
		return codeDoc{}, fmt.Errorf("unsupported prize type %T", c.Prize)
	}
	return doc, nil
}

func (d codeDoc) toModel() (*models.RedeemCode, error) {
	c := &models.RedeemCode{
		Code:       d.ID,
		CreatorID:  d.CreatorID,
		Limit:      d.RedemptionLimit,
		Count:      d.RedemptionCount,
		RedeemedBy: d.RedeemedBy,
		CreatedAt:  d.CreatedAt,
	}

	switch models.PrizeType(d.ItemType) {
	case models.PrizeText:
		c.Prize = models.TextPrize{Text: d.ItemContent.Text}
	case models.PrizeFile:
		c.Prize = models.FilePrize{Kind: models.MediaKind(d.ItemContent.FileType), Handle: d.ItemContent.FileID}
	case models.PrizePool:
		c.Prize = models.PoolPrize{Items: d.ItemContent.Codes}
	default:
		return nil, fmt.Errorf("unknown item type %q for code %s", d.ItemType, d.ID)
	}
	return c, nil
}

type configDoc struct {
	ID                string   `bson:"_id"`
	AdminIDs          []int64  `bson:"admin_ids"`
	AutoDeleteSeconds int      `bson:"auto_delete_seconds"`
	BotDisabled       bool     `bson:"bot_disabled,omitempty"`
	ForceSubChannels  []string `bson:"force_sub_channels"`
}
