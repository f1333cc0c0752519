// Command staffctl creates and lists the staff members the reception service
// authenticates and routes calls to.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/campusdesk/reception-service/internal/config"
	"github.com/campusdesk/reception-service/internal/domain"
	"github.com/campusdesk/reception-service/internal/observability"
	"github.com/campusdesk/reception-service/internal/persistence"
	"github.com/campusdesk/reception-service/internal/repository"
	"github.com/campusdesk/reception-service/internal/service"
)

func main() {
	var (
		name       = flag.String("name", "", "display name")
		email      = flag.String("email", "", "login email")
		shortCode  = flag.String("short-code", "", "initials or room code visitors may dial")
		department = flag.String("department", "", "department shown on the presence board")
		password   = flag.String("password", os.Getenv("STAFFCTL_PASSWORD"), "initial password (or STAFFCTL_PASSWORD)")
		list       = flag.Bool("list", false, "list active staff instead of creating one")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	if pg.PoolHandle() == nil {
		logger.Fatal("POSTGRES_DSN is required")
	}
	if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	staffRepo := repository.NewStaffRepository(pg.PoolHandle())

	if *list {
		members, err := service.NewDirectoryService(staffRepo, logger).LoadAll(ctx)
		if err != nil {
			logger.Fatal("list staff", zap.Error(err))
		}
		for _, m := range members {
			fmt.Printf("%s\t%s\t%s\t%s\t%s\n", m.ID, m.Name, m.Email, m.ShortCode, m.Department)
		}
		return
	}

	member := &domain.StaffMember{
		Name:       *name,
		Email:      *email,
		ShortCode:  *shortCode,
		Department: *department,
	}
	if err := service.NewAuthService(*cfg, staffRepo).RegisterStaff(ctx, member, *password); err != nil {
		logger.Fatal("create staff", zap.Error(err))
	}
	fmt.Println(member.ID)
}
