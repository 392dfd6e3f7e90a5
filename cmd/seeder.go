package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with a demo company, departments and users for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		db, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			tables := []string{
				"task_history", "tasks", "evaluation_history", "evaluations",
				"notifications", "password_resets", "billing_events",
				"billing_dead_letters", "subscriptions", "users", "departments",
				"roles", "companies",
			}
			for _, t := range tables {
				if err := db.Exec("DELETE FROM " + t).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", t, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		companyName := "Comercial Andina S.A."
		var companyID int64
		row := db.Raw("SELECT id FROM companies WHERE name = ?", companyName).Row()
		if err := row.Scan(&companyID); err != nil {
			if err := db.Exec("INSERT INTO companies (name, created_at, updated_at) VALUES (?, now(), now())",
				companyName).Error; err != nil {
				log.Fatalf("failed to insert demo company: %v", err)
			}
			if err := db.Raw("SELECT id FROM companies WHERE name = ?", companyName).Row().Scan(&companyID); err != nil {
				log.Fatalf("failed to look up demo company: %v", err)
			}
			fmt.Println("Seeded demo company:", companyName)
		}

		roles := []string{"HR", "Manager", "Supervisor", "Worker"}
		roleIDs := make(map[string]int64, len(roles))
		for _, name := range roles {
			var id int64
			row := db.Raw("SELECT id FROM roles WHERE company_id = ? AND name = ?", companyID, name).Row()
			if err := row.Scan(&id); err != nil {
				if err := db.Exec("INSERT INTO roles (company_id, name, created_at, updated_at) VALUES (?, ?, now(), now())", companyID, name).Error; err != nil {
					log.Fatalf("failed to insert role %s: %v", name, err)
				}
				if err := db.Raw("SELECT id FROM roles WHERE company_id = ? AND name = ?", companyID, name).Row().Scan(&id); err != nil {
					log.Fatalf("failed to look up role %s: %v", name, err)
				}
			}
			roleIDs[name] = id
		}

		var deptID int64
		row = db.Raw("SELECT id FROM departments WHERE company_id = ? AND name = ?", companyID, "Operations").Row()
		if err := row.Scan(&deptID); err != nil {
			if err := db.Exec("INSERT INTO departments (company_id, name, description, created_at, updated_at) VALUES (?, ?, ?, now(), now())",
				companyID, "Operations", "Store operations").Error; err != nil {
				log.Fatalf("failed to insert department: %v", err)
			}
			if err := db.Raw("SELECT id FROM departments WHERE company_id = ? AND name = ?", companyID, "Operations").Row().Scan(&deptID); err != nil {
				log.Fatalf("failed to look up department: %v", err)
			}
			fmt.Println("Seeded department: Operations")
		}

		hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)

		users := []struct {
			Username  string
			FirstName string
			LastName  string
			RUT       string
			Phone     string
			Role      string
			Dept      *int64
		}{
			{"ana.hr", "Ana", "Riquelme", "12.345.678-5", "+56911111111", "HR", nil},
			{"max.gerente", "Max", "Fuentes", "15.678.234-K", "+56922222222", "Manager", &deptID},
			{"bob.supervisor", "Bob", "Soto", "17.890.123-6", "+56933333333", "Supervisor", &deptID},
			{"jane.trabajadora", "Jane", "Morales", "19.234.567-8", "+56944444444", "Worker", &deptID},
		}

		for _, u := range users {
			var exists int
			row := db.Raw("SELECT 1 FROM users WHERE username = ?", u.Username).Row()
			if err := row.Scan(&exists); err == nil {
				continue
			}
			email := u.Username + "@example.com"
			if err := db.Exec(`INSERT INTO users
				(company_id, role_id, department_id, username, email, first_name, last_name, rut, phone, password_hash, is_active, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, true, now(), now())`,
				companyID, roleIDs[u.Role], u.Dept, u.Username, email, u.FirstName, u.LastName, u.RUT, u.Phone, string(hash)).Error; err != nil {
				log.Fatalf("failed to insert user %s: %v", u.Username, err)
			}
			fmt.Printf("Seeded user %s (%s)\n", u.Username, u.Role)
		}

		var subExists int
		row = db.Raw("SELECT 1 FROM subscriptions WHERE company_id = ?", companyID).Row()
		if err := row.Scan(&subExists); err != nil {
			if err := db.Exec(`INSERT INTO subscriptions
				(company_id, plan, cycle, currency, monthly_amount, annual_amount, status, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, now(), now())`,
				companyID, cfg.Billing.PlanName, "Monthly", cfg.Billing.Currency,
				cfg.Billing.MonthlyAmount, cfg.Billing.AnnualAmount, "Inactive").Error; err != nil {
				log.Fatalf("failed to insert subscription: %v", err)
			}
			fmt.Println("Seeded inactive subscription")
		}

		fmt.Println("Demo data seeded successfully. All passwords are \"password\".")
	},
}
