// Package main provides admin management utilities for Inkwell.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/media"
	"inkwell/internal/repository"
	"inkwell/internal/service"
	"inkwell/internal/tokens"

	"gorm.io/gorm"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin sweep-otp                                  - Purge expired and used reset codes")
	fmt.Println("  go run ./cmd/admin create-superuser -email <e> -password <p>  - Create a staff superuser")
	fmt.Println("  go run ./cmd/admin list-staff                                 - List staff accounts")
}

func main() {
	if len(os.Args) < 2 {
		usage()
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

	ctx := context.Background()
	command := os.Args[1]

	switch command {
	case "sweep-otp":
		sweepOTP(ctx, cfg, db)

	case "create-superuser":
		fs := flag.NewFlagSet("create-superuser", flag.ExitOnError)
		email := fs.String("email", "", "superuser email address")
		password := fs.String("password", "", "superuser password")
		_ = fs.Parse(os.Args[2:])
		if *email == "" || *password == "" {
			fmt.Println("Usage: go run ./cmd/admin create-superuser -email <e> -password <p>")
			os.Exit(1)
		}
		createSuperuser(ctx, cfg, db, *email, *password)

	case "list-staff":
		listStaff(ctx, db)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}

func sweepOTP(ctx context.Context, cfg *config.Config, db *gorm.DB) {
	tokenService := service.NewTokenService(
		tokens.NewLinkSigner(cfg.LinkSecret(), cfg.LinkTokenTTL()),
		tokens.NewOTPGenerator(cfg.OTPTTL()),
		repository.NewOTPRepository(db),
		repository.NewUserRepository(db),
	)
	n, err := service.NewOTPSweeper(tokenService, 0).SweepOnce(ctx)
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}
	fmt.Printf("Removed %d reset codes\n", n)
}

func createSuperuser(ctx context.Context, cfg *config.Config, db *gorm.DB, email, password string) {
	identity := service.NewIdentityService(repository.NewUserRepository(db), media.NewDiskAvatarStore(cfg.AvatarDir))
	user, err := identity.CreateSuperuser(ctx, email, password)
	if err != nil {
		log.Fatalf("Failed to create superuser: %v", err)
	}
	fmt.Printf("Created superuser %s (ID: %s)\n", user.Username, user.ID)
}

func listStaff(ctx context.Context, db *gorm.DB) {
	var staff []struct {
		ID          string
		Username    string
		Email       string
		IsSuperuser bool
	}
	err := db.WithContext(ctx).Table("users").
		Select("id, username, email, is_superuser").
		Where("is_staff = ? OR is_superuser = ?", true, true).
		Order("username").
		Scan(&staff).Error
	if err != nil {
		log.Fatalf("Failed to fetch staff: %v", err)
	}

	if len(staff) == 0 {
		fmt.Println("No staff accounts found")
		return
	}
	fmt.Printf("Found %d staff account(s):\n", len(staff))
	for _, u := range staff {
		role := "staff"
		if u.IsSuperuser {
			role = "superuser"
		}
		fmt.Printf("  %s  %-20s %-32s %s\n", u.ID, u.Username, u.Email, role)
	}
}
