// internal/models/admin.go
package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// SettingValue is raw JSON kept as jsonb on Postgres and as text on other
// dialects, where a JSON column would take numeric affinity.
type SettingValue []byte

func (v SettingValue) Value() (driver.Value, error) {
	if len(v) == 0 {
		return nil, nil
	}
	return string(v), nil
}

func (v *SettingValue) Scan(value interface{}) error {
	switch t := value.(type) {
	case nil:
		*v = nil
	case []byte:
		*v = append(SettingValue(nil), t...)
	case string:
		*v = SettingValue(t)
	case int64:
		*v = SettingValue(strconv.FormatInt(t, 10))
	case float64:
		*v = SettingValue(strconv.FormatFloat(t, 'f', -1, 64))
	case bool:
		*v = SettingValue(strconv.FormatBool(t))
	default:
		return fmt.Errorf("unsupported setting value type %T", value)
	}
	return nil
}

func (v SettingValue) MarshalJSON() ([]byte, error) {
	if len(v) == 0 {
		return []byte("null"), nil
	}
	return v, nil
}

func (v *SettingValue) UnmarshalJSON(b []byte) error {
	*v = append(SettingValue(nil), b...)
	return nil
}

func (SettingValue) GormDataType() string {
	return "json"
}

func (SettingValue) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "jsonb"
	}
	return "text"
}

// AdminSettings stores one typed platform setting as raw JSON.
type AdminSettings struct {
	BaseModel
	Category    string         `json:"category" gorm:"size:50;not null;uniqueIndex:idx_admin_settings_category_key"`
	Key         string         `json:"key" gorm:"size:100;not null;uniqueIndex:idx_admin_settings_category_key"`
	Value       SettingValue   `json:"value" gorm:"not null"`
	DataType    string         `json:"data_type" gorm:"size:20;not null"`
	Description string         `json:"description" gorm:"type:text"`
	UpdatedBy   *uuid.UUID     `json:"updated_by" gorm:"type:uuid"`
}

type AuditLog struct {
	BaseModel
	UserID       *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	Action       string     `json:"action" gorm:"size:100;not null;index"`
	ResourceType string     `json:"resource_type" gorm:"size:50;not null;index"`
	ResourceID   *uuid.UUID `json:"resource_id" gorm:"type:uuid;index"`
	NewValues    JSONB      `json:"new_values" gorm:"type:jsonb"`
	StatusCode   int        `json:"status_code"`
	IPAddress    string     `json:"ip_address" gorm:"size:45"`
	UserAgent    string     `json:"user_agent" gorm:"type:text"`
}
