package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mendelflow/mendelflowgo/internal/access"
	"github.com/mendelflow/mendelflowgo/internal/config"
	"github.com/mendelflow/mendelflowgo/internal/database"
	"github.com/mendelflow/mendelflowgo/internal/logging"
	"github.com/mendelflow/mendelflowgo/internal/models"
	"github.com/mendelflow/mendelflowgo/internal/store"
	"github.com/mendelflow/mendelflowgo/internal/utils"
)

// demoPassword is shared by every seeded account
const demoPassword = "demo12345"

func main() {
	fmt.Println("🌱 MendelFlow Demo Data Seeder")
	fmt.Println(strings.Repeat("=", 60))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.NodeEnv, "warn")
	if err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}

	db, err := database.Connect(cfg.Database, logger)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("✅ Connected to database")

	fmt.Println("🔨 Running database migrations...")
	if err := db.Migrate(); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	ctx := context.Background()
	st := store.New(db.DB)

	userCount, err := st.CountUsers(ctx)
	if err != nil {
		log.Fatalf("❌ Failed to count users: %v", err)
	}
	if userCount > 0 {
		fmt.Printf("⚠️  Database already has %d users. Clear it first? (y/N): ", userCount)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("❌ Aborted. Database not modified.")
			return
		}
		fmt.Println("🗑️  Clearing existing data...")
		for _, table := range []string{"queue_events", "queue_tickets", "queue_counters", "task_comments", "tasks", "order_items", "orders", "products", "users"} {
			if err := db.Exec("TRUNCATE TABLE " + table + " CASCADE").Error; err != nil {
				log.Fatalf("❌ Failed to clear %s: %v", table, err)
			}
		}
	}

	fmt.Println()
	fmt.Println("👤 Creating users...")
	hash, err := utils.HashPassword(demoPassword)
	if err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}
	users := make(map[access.Role]*models.User)
	for _, role := range access.Roles {
		name := strings.ToLower(string(role))
		u := &models.User{
			Username: name,
			Email:    name + "@demo.local",
			FullName: string(role) + " demo",
			Password: hash,
			Role:     role,
			IsActive: true,
		}
		if err := st.CreateUser(ctx, u); err != nil {
			log.Fatalf("❌ Failed to create user %s: %v", name, err)
		}
		users[role] = u
		fmt.Printf("   %-12s %s\n", role, u.Username)
	}

	fmt.Println("📦 Creating products...")
	products := []models.Product{
		{SKU: "VLV-050", Name: "Ball valve DN50", Location: "01,01,02,00", Quantity: 40, Unit: "pcs", Weight: 1.2, IsActive: true},
		{SKU: "PIP-110", Name: "PVC pipe 110mm", Location: "03,02,01,00", Quantity: 120, Unit: "m", Weight: 0.9, IsActive: true},
		{SKU: "FLG-080", Name: "Flange DN80", Location: "12,05,00,00", Quantity: 2, Unit: "pcs", Weight: 2.5, IsActive: true},
		{SKU: "GSK-080", Name: "Gasket DN80", Location: "12,05,01,00", Quantity: 300, Unit: "pcs", Weight: 0.05, IsActive: true},
	}
	for i := range products {
		if err := st.CreateProduct(ctx, &products[i]); err != nil {
			log.Fatalf("❌ Failed to create product %s: %v", products[i].SKU, err)
		}
	}

	fmt.Println("🧾 Creating orders...")
	worker := users[access.RoleWorker].ID
	orders := []*models.Order{
		{
			OrderNumber:  "ORD-001",
			CustomerName: "John Doe",
			Notes:        "Customer collects at the counter",
			Items: []models.OrderItem{
				{Position: 1, SKU: "VLV-050", Name: "Ball valve DN50", Quantity: 4, AvailableQuantity: 4, Location: "01,01,02,00"},
				{Position: 2, SKU: "PIP-110", Name: "PVC pipe 110mm", Quantity: 12, AvailableQuantity: 12, Location: "03,02,01,00"},
			},
		},
		{
			OrderNumber:  "ORD-002",
			CustomerName: "Acme Plumbing",
			AssignedTo:   &worker,
			Items: []models.OrderItem{
				{Position: 1, SKU: "FLG-080", Name: "Flange DN80", Quantity: 5, AvailableQuantity: 2, Location: "12,05,00,00"},
				{Position: 2, SKU: "GSK-080", Name: "Gasket DN80", Quantity: 10, AvailableQuantity: 10, Location: "12,05,01,00"},
			},
		},
	}
	for _, o := range orders {
		if err := st.CreateOrder(ctx, o); err != nil {
			log.Fatalf("❌ Failed to create order %s: %v", o.OrderNumber, err)
		}
	}

	fmt.Println("✅ Creating tasks...")
	manager := users[access.RoleManager].ID
	tasks := []models.Task{
		{Title: "Cycle count aisle 12", Priority: models.TaskPriorityMedium, Location: "12,00,00,00", AssignedTo: &worker, CreatedBy: &manager},
		{Title: "Restock flanges DN80", Priority: models.TaskPriorityHigh, OrderNumber: "ORD-002", Location: "12,05,00,00", CreatedBy: &manager},
	}
	for i := range tasks {
		if err := st.CreateTask(ctx, &tasks[i]); err != nil {
			log.Fatalf("❌ Failed to create task %q: %v", tasks[i].Title, err)
		}
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("🎉 Seeded %d users, %d products, %d orders, %d tasks\n", len(users), len(products), len(orders), len(tasks))
	fmt.Printf("   Every account uses the password %q\n", demoPassword)
}
