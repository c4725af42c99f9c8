// Package models defines GORM data models for arcbot.
package models

// GuildPrefix is one row of the prefixes table: the command prefix a guild
// configured through the admin write path.
//
// GuildID is the platform's unsigned 64-bit snowflake stored as a signed
// 64-bit integer, since the store has no unsigned column type. Prefix is
// nullable: NULL and "no row" both mean "use the default", while an empty
// string is a real configured value.
type GuildPrefix struct {
	GuildID int64   `gorm:"column:guild_id;primaryKey;autoIncrement:false" json:"guild_id"`
	Prefix  *string `gorm:"column:prefix" json:"prefix"`
}

// TableName pins the table name used by the original deployment.
func (GuildPrefix) TableName() string { return "prefixes" }

// StoreGuildID converts a platform guild id to its store representation.
func StoreGuildID(id uint64) int64 { return int64(id) }
