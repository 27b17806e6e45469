package models

import (
	"ifcserver/db"
	"log"
)

func Init() {
	if err := db.Instance.AutoMigrate(&Model{}, &PropertyRecord{}); err != nil {
		log.Fatalf("Auto-migrate error: %v", err)
	}
}
