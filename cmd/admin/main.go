// Package main grants and revokes the Writer role from the command line.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"spaceofthoughts/internal/config"
	"spaceofthoughts/internal/database"
	"spaceofthoughts/internal/models"

	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admin grant <email>    - Give a user the Writer role")
		fmt.Println("  go run ./cmd/admin revoke <email>   - Take the Writer role away")
		fmt.Println("  go run ./cmd/admin list-writers     - List every Writer")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	switch command := os.Args[1]; command {
	case "grant", "revoke":
		if len(os.Args) < 3 {
			fmt.Printf("Usage: go run ./cmd/admin %s <email>\n", command)
			os.Exit(1)
		}
		user := findUser(db, os.Args[2])
		if command == "grant" {
			grantWriter(db, user)
		} else {
			revokeWriter(db, user)
		}

	case "list-writers":
		listWriters(db)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func findUser(db *gorm.DB, email string) *models.User {
	var user models.User
	err := db.Preload("Roles").
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Printf("User with email %s not found\n", email)
		} else {
			log.Fatalf("Database error: %v", err)
		}
		os.Exit(1)
	}
	return &user
}

func writerRole(db *gorm.DB) *models.Role {
	var role models.Role
	if err := db.First(&role, "id = ?", models.WriterRoleID).Error; err != nil {
		log.Fatalf("Writer role missing; start the server or run cmd/seed first: %v", err)
	}
	return &role
}

func isWriter(user *models.User) bool {
	for _, r := range user.Roles {
		if r.ID == models.WriterRoleID {
			return true
		}
	}
	return false
}

func grantWriter(db *gorm.DB, user *models.User) {
	if isWriter(user) {
		fmt.Printf("%s is already a Writer\n", user.UserName)
		return
	}
	if err := db.Model(user).Association("Roles").Append(writerRole(db)); err != nil {
		log.Fatalf("Failed to grant Writer: %v", err)
	}
	fmt.Printf("Granted Writer to %s (%s)\n", user.UserName, user.ID)
}

func revokeWriter(db *gorm.DB, user *models.User) {
	if user.ID == models.AdminUserID {
		fmt.Println("The Admin account always keeps the Writer role")
		os.Exit(1)
	}
	if !isWriter(user) {
		fmt.Printf("%s is not a Writer\n", user.UserName)
		return
	}
	if err := db.Model(user).Association("Roles").Delete(writerRole(db)); err != nil {
		log.Fatalf("Failed to revoke Writer: %v", err)
	}
	fmt.Printf("Revoked Writer from %s (%s)\n", user.UserName, user.ID)
}

func listWriters(db *gorm.DB) {
	var writers []models.User
	err := db.Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Where("user_roles.role_id = ?", models.WriterRoleID).
		Order("user_name").
		Find(&writers).Error
	if err != nil {
		log.Fatalf("Failed to fetch writers: %v", err)
	}

	if len(writers) == 0 {
		fmt.Println("No writers found")
		return
	}
	for _, w := range writers {
		fmt.Printf("ID: %s | UserName: %s | Email: %s\n", w.ID, w.UserName, w.Email)
	}
}
