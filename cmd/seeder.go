package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample products, stock ledgers and admins for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlDB.Close()

		if clearData {
			clearSeedData(db)
		}

		seedProducts(db)
		seedAdmins(db)

		fmt.Println("Seeding complete")
	},
}

func clearSeedData(db *gorm.DB) {
	tables := []string{"notification_deliveries", "payments", "orders", "stock_histories", "stock_ledgers", "products", "admins"}
	for _, t := range tables {
		if err := db.Exec("DELETE FROM " + t).Error; err != nil {
			log.Fatalf("failed to clear %s: %v", t, err)
		}
	}
	fmt.Println("Cleared existing data")
}

func seedProducts(db *gorm.DB) {
	products := []struct {
		Name  string
		Desc  string
		Price int64
		Qty   int
	}{
		{"Kopi Gayo 250g", "Biji kopi arabika Gayo, sangrai medium", 85000, 40},
		{"Teh Melati 100g", "Teh melati tubruk", 25000, 120},
		{"Gula Aren Cair 500ml", "Gula aren murni tanpa campuran", 45000, 15},
		{"Keripik Tempe Pedas", "Keripik tempe Malang level 3", 18000, 3},
		{"Sambal Roa 200g", "Sambal ikan roa khas Manado", 55000, 0},
	}

	for _, p := range products {
		var exists int
		if err := db.Raw("SELECT 1 FROM products WHERE name = ?", p.Name).Row().Scan(&exists); err == nil {
			fmt.Println("product already exists:", p.Name)
			continue
		}

		status := "available"
		if p.Qty == 0 {
			status = "out_of_stock"
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			var id int64
			if err := tx.Raw(
				"INSERT INTO products (name, description, price_idr, stock_quantity, availability_status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, now(), now()) RETURNING id",
				p.Name, p.Desc, p.Price, p.Qty, status,
			).Row().Scan(&id); err != nil {
				return err
			}
			if err := tx.Exec(
				"INSERT INTO stock_ledgers (product_id, current_quantity, reserved_quantity, created_at, updated_at) VALUES (?, ?, 0, now(), now())",
				id, p.Qty,
			).Error; err != nil {
				return err
			}
			return tx.Exec(
				"INSERT INTO stock_histories (product_id, previous_quantity, new_quantity, actor_id, reason, created_at) VALUES (?, 0, ?, 'system', 'seed', now())",
				id, p.Qty,
			).Error
		})
		if err != nil {
			log.Fatalf("failed to seed product %s: %v", p.Name, err)
		}
		fmt.Println("Seeded product:", p.Name)
	}
}

func seedAdmins(db *gorm.DB) {
	admins := []struct {
		ChatID string
		Name   string
		Muted  string
	}{
		{"100200300", "Padil Admin", `[]`},
		{"100200301", "Fadhil Ops", `["new_order"]`},
	}

	for _, a := range admins {
		var exists int
		if err := db.Raw("SELECT 1 FROM admins WHERE chat_id = ?", a.ChatID).Row().Scan(&exists); err == nil {
			fmt.Println("admin already exists:", a.Name)
			continue
		}

		if err := db.Exec(
			"INSERT INTO admins (chat_id, name, is_active, notifications_enabled, muted_events, created_at) VALUES (?, ?, true, true, ?::jsonb, now())",
			a.ChatID, a.Name, a.Muted,
		).Error; err != nil {
			log.Fatalf("failed to insert admin %s: %v", a.Name, err)
		}
		fmt.Println("Seeded admin:", a.Name)
	}
}
