package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/velora-edu/examspace-backend/internal/config"
	"github.com/velora-edu/examspace-backend/internal/database"
	"github.com/velora-edu/examspace-backend/internal/logger"
	"github.com/velora-edu/examspace-backend/internal/model"
	"github.com/velora-edu/examspace-backend/internal/repository"
	"github.com/velora-edu/examspace-backend/internal/service"
)

func strPtr(s string) *string { return &s }

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	auth := service.NewAuthService(cfg, rdb)
	candidateRepo := repository.NewCandidateRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	testRepo := repository.NewTestRepository(pool)
	sectionRepo := repository.NewSectionRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	fmt.Println("=== Seeding demo exam ===")

	// ─── Accounts ──────────────────────────────────────────────────────
	hash, err := auth.HashPassword("candidate123")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}
	candidate := &model.Candidate{Username: "candidate1", Name: "Demo Candidate", PasswordHash: hash}
	if err := candidateRepo.Create(ctx, candidate); err != nil {
		if err == repository.ErrDuplicateUsername {
			fmt.Println("Candidate candidate1 already exists, skipping")
		} else {
			log.Fatal().Err(err).Msg("Failed to create candidate")
		}
	} else {
		fmt.Printf("Created candidate %q (id %d)\n", candidate.Username, candidate.ID)
	}

	adminHash, err := auth.HashPassword("admin123")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}
	admin := &model.Admin{Username: "admin", Name: "Demo Admin", PasswordHash: adminHash}
	if err := adminRepo.Create(ctx, admin); err != nil {
		fmt.Println("Admin already exists, skipping")
	} else {
		fmt.Printf("Created admin %q (id %d)\n", admin.Username, admin.ID)
	}

	// ─── Test with two sections ────────────────────────────────────────
	test := &model.Test{ID: uuid.New(), Title: "General Aptitude Mock", CaptureEnabled: false}
	if err := testRepo.Create(ctx, test); err != nil {
		log.Fatal().Err(err).Msg("Failed to create test")
	}
	fmt.Printf("Created test %q (%s)\n", test.Title, test.ID)

	mathID := uuid.New()
	physicsID := uuid.New()
	sections := []model.Section{
		{SubjectID: mathID, Description: "Mathematics", DurationMinutes: 30, Position: 0},
		{SubjectID: physicsID, Description: "Physics", DurationMinutes: 45, Position: 1},
	}
	for i := range sections {
		if err := sectionRepo.Create(ctx, test.ID, &sections[i]); err != nil {
			log.Fatal().Err(err).Msg("Failed to create section")
		}
	}

	type seedQuestion struct {
		q       model.Question
		correct string
	}
	questions := map[uuid.UUID][]seedQuestion{
		mathID: {
			{model.Question{
				ID: uuid.New(), QuestionNumber: "1", Type: model.QuestionTypeSingleChoice,
				Body:    "What is 7 x 8?",
				Choices: [4]*string{strPtr("54"), strPtr("56"), strPtr("58"), strPtr("64")},
			}, "B"},
			{model.Question{
				ID: uuid.New(), QuestionNumber: "2", Type: model.QuestionTypeMultiChoice,
				Body:          "Which of these are prime numbers?",
				Choices:       [4]*string{strPtr("2"), strPtr("9"), strPtr("11"), strPtr("15")},
				NegativeMarks: 0.25,
			}, "A,C"},
			{model.Question{
				ID: uuid.New(), QuestionNumber: "3", Type: model.QuestionTypeOrder,
				Body:    "Order these from smallest to largest.",
				Choices: [4]*string{strPtr("1/2"), strPtr("1/3"), strPtr("1/4"), strPtr("1/5")},
			}, "D,C,B,A"},
		},
		physicsID: {
			{model.Question{
				ID: uuid.New(), QuestionNumber: "1", Type: model.QuestionTypeSingleChoice,
				Body:    "The SI unit of force is the:",
				Choices: [4]*string{strPtr("joule"), strPtr("newton"), strPtr("watt"), strPtr("pascal")},
			}, "B"},
			{model.Question{
				ID: uuid.New(), QuestionNumber: "2", Type: model.QuestionTypeText,
				Body: "Name the scientist who formulated the laws of motion.",
			}, "Newton"},
			{model.Question{
				ID: uuid.New(), QuestionNumber: "3", Type: model.QuestionTypeLongText,
				Body: "Explain, briefly, why astronauts appear weightless in orbit.",
			}, ""},
		},
	}
	for subjectID, list := range questions {
		for i, sq := range list {
			if err := questionRepo.Create(ctx, test.ID, subjectID, i, &sq.q, sq.correct); err != nil {
				log.Fatal().Err(err).Msg("Failed to create question")
			}
		}
	}
	fmt.Println("Created 6 questions across 2 sections")

	// ─── Linked follow-on test ─────────────────────────────────────────
	followOn := &model.Test{ID: uuid.New(), Title: "General Aptitude Mock II", CaptureEnabled: false}
	if err := testRepo.Create(ctx, followOn); err != nil {
		log.Fatal().Err(err).Msg("Failed to create follow-on test")
	}
	followSection := model.Section{SubjectID: uuid.New(), Description: "Reasoning", DurationMinutes: 20, Position: 0}
	if err := sectionRepo.Create(ctx, followOn.ID, &followSection); err != nil {
		log.Fatal().Err(err).Msg("Failed to create follow-on section")
	}
	if err := testRepo.Link(ctx, test.ID, followOn.ID); err != nil {
		log.Fatal().Err(err).Msg("Failed to link tests")
	}
	fmt.Printf("Linked %q -> %q\n", test.Title, followOn.Title)

	fmt.Println("=== Done ===")
	fmt.Printf("Start a session with test_id %s as candidate1/candidate123\n", test.ID)
}
