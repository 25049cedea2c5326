// Command provision creates or rewrites a dashboard user directly in the
// database. It is the operator path for granting and changing receiver-number
// mappings without going through the HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"gitlab.com/voxlane/api/voicedash/internal/config"
	"gitlab.com/voxlane/api/voicedash/internal/model"
	"gitlab.com/voxlane/api/voicedash/internal/storage"
	"gitlab.com/voxlane/api/voicedash/internal/usecase"
	"gitlab.com/voxlane/api/voicedash/pkg/logger"
)

func main() {
	time.Local = time.UTC

	var (
		name           = flag.String("name", "", "display name (required)")
		email          = flag.String("email", "", "login email, the upsert key (required)")
		password       = flag.String("password", "", "plaintext password, hashed before storage (required)")
		receiverNumber = flag.String("receiver-number", "", "phone line the user may see; omitted, an existing mapping stays as it is")
		receiverName   = flag.String("receiver-name", "", "display label for the mapped line")
		clearMapping   = flag.Bool("clear-mapping", false, "remove the stored mapping, making the user unrestricted")
		autoMigrate    = flag.Bool("auto-migrate", false, "run schema migration before writing")
	)
	flag.Parse()

	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *name == "" || *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	repo, err := storage.NewPostgresRepo(cfg.Database.PostgresDSN, *autoMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer repo.Close(ctx)

	input := model.UserUpsert{
		Name:     *name,
		Email:    *email,
		Password: *password,
	}
	// nil leaves a stored mapping untouched; the empty string clears it.
	switch {
	case *clearMapping:
		empty := ""
		input.ReceiverNumber = &empty
		input.ReceiverName = &empty
	default:
		if *receiverNumber != "" {
			input.ReceiverNumber = receiverNumber
		}
		if *receiverName != "" {
			input.ReceiverName = receiverName
		}
	}

	user, err := usecase.NewUserService(repo).Upsert(ctx, input)
	if err != nil {
		logger.Log.Fatal("Failed to provision user", zap.Error(err))
	}

	scope := "unrestricted (sees every conversation)"
	if user.ReceiverNumber != nil {
		scope = fmt.Sprintf("restricted to %s", *user.ReceiverNumber)
	}
	fmt.Printf("User provisioned:\n  id:    %d\n  email: %s\n  name:  %s\n  scope: %s\n", user.ID, user.Email, user.Name, scope)
}
