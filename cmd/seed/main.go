package main

import (
	"time"

	"github.com/atithi-next/internal/config"
	"github.com/atithi-next/internal/constants"
	"github.com/atithi-next/internal/logger"
	"github.com/atithi-next/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	now := time.Now()
	checkIn := now.Add(-48 * time.Hour)

	// 房账
	accounts := []models.RoomAccount{
		{AccountNo: "RA-101", GuestName: "Arjun Mehta", RoomNo: "101"},
		{AccountNo: "RA-205", GuestName: "Priya Nair", RoomNo: "205"},
	}
	for _, account := range accounts {
		var existing models.RoomAccount
		if err := models.DB.Where("account_no = ?", account.AccountNo).First(&existing).Error; err != nil {
			if err := models.DB.Create(&account).Error; err != nil {
				stdLog.Printf("Failed to create room account %s: %v", account.AccountNo, err)
			} else {
				stdLog.Printf("Created room account: %s", account.AccountNo)
			}
		} else {
			stdLog.Printf("Room account already exists: %s", account.AccountNo)
		}
	}

	// 金额以卢比书写，落库为最小货币单位
	roomCharge := models.NewMoneyFromRupees(decimal.NewFromFloat(4500.00))
	dinnerCharge := models.NewMoneyFromRupees(decimal.NewFromFloat(1280.50))
	orderCharge := models.NewMoneyFromRupees(decimal.NewFromFloat(640.00))
	takeawayCharge := models.NewMoneyFromRupees(decimal.NewFromFloat(320.00))

	// 客房账单
	roomInvoices := []models.RoomInvoice{
		{
			InvoiceNo:     "RI-2024-0001",
			RoomAccountNo: "RA-101",
			RoomNo:        "101",
			GuestName:     "Arjun Mehta",
			CheckInAt:     &checkIn,
			Billing: models.Billing{
				AmountDue:     roomCharge,
				PaymentStatus: constants.PaymentStatusPending,
			},
		},
		{
			InvoiceNo:     "RI-2024-0002",
			RoomAccountNo: "RA-205",
			RoomNo:        "205",
			GuestName:     "Priya Nair",
			CheckInAt:     &checkIn,
			Billing: models.Billing{
				AmountDue:     roomCharge,
				PaymentStatus: constants.PaymentStatusPending,
			},
		},
	}
	for _, invoice := range roomInvoices {
		var existing models.RoomInvoice
		if err := models.DB.Where("invoice_no = ?", invoice.InvoiceNo).First(&existing).Error; err != nil {
			if err := models.DB.Create(&invoice).Error; err != nil {
				stdLog.Printf("Failed to create room invoice %s: %v", invoice.InvoiceNo, err)
			} else {
				stdLog.Printf("Created room invoice: %s", invoice.InvoiceNo)
				seedUnpaidLedgerEntry(stdLog.Printf, invoice.RoomAccountNo, constants.RecordTypeRoomInvoice, invoice.InvoiceNo, invoice.Billing.AmountDue)
			}
		} else {
			stdLog.Printf("Room invoice already exists: %s", invoice.InvoiceNo)
		}
	}

	// 餐厅账单（挂入房账）
	restaurantInvoice := models.RestaurantInvoice{
		InvoiceNo:     "RE-2024-0001",
		RoomAccountNo: "RA-101",
		TableNo:       "T7",
		GuestName:     "Arjun Mehta",
		Billing: models.Billing{
			AmountDue:     dinnerCharge,
			PaymentStatus: constants.PaymentStatusPending,
		},
	}
	var existingRestaurant models.RestaurantInvoice
	if err := models.DB.Where("invoice_no = ?", restaurantInvoice.InvoiceNo).First(&existingRestaurant).Error; err != nil {
		if err := models.DB.Create(&restaurantInvoice).Error; err != nil {
			stdLog.Printf("Failed to create restaurant invoice %s: %v", restaurantInvoice.InvoiceNo, err)
		} else {
			stdLog.Printf("Created restaurant invoice: %s", restaurantInvoice.InvoiceNo)
			seedUnpaidLedgerEntry(stdLog.Printf, restaurantInvoice.RoomAccountNo, constants.RecordTypeRestaurantInvoice, restaurantInvoice.InvoiceNo, restaurantInvoice.Billing.AmountDue)
		}
	} else {
		stdLog.Printf("Restaurant invoice already exists: %s", restaurantInvoice.InvoiceNo)
	}

	// 在店挂账订单
	runningOrder := models.RunningOrder{
		OrderNo:       "RO-2024-0001",
		RoomAccountNo: "RA-205",
		RoomNo:        "205",
		GuestName:     "Priya Nair",
		Billing: models.Billing{
			AmountDue:     orderCharge,
			PaymentStatus: constants.PaymentStatusPending,
		},
	}
	var existingOrder models.RunningOrder
	if err := models.DB.Where("order_no = ?", runningOrder.OrderNo).First(&existingOrder).Error; err != nil {
		if err := models.DB.Create(&runningOrder).Error; err != nil {
			stdLog.Printf("Failed to create running order %s: %v", runningOrder.OrderNo, err)
		} else {
			stdLog.Printf("Created running order: %s", runningOrder.OrderNo)
			seedUnpaidLedgerEntry(stdLog.Printf, runningOrder.RoomAccountNo, constants.RecordTypeRunningOrder, runningOrder.OrderNo, runningOrder.Billing.AmountDue)
		}
	} else {
		stdLog.Printf("Running order already exists: %s", runningOrder.OrderNo)
	}

	// 外卖/散客餐单（不挂房账）
	foodInvoice := models.FoodInvoice{
		InvoiceNo:    "FI-2024-0001",
		CustomerName: "Walk-in",
		Billing: models.Billing{
			AmountDue:     takeawayCharge,
			PaymentStatus: constants.PaymentStatusPending,
		},
	}
	var existingFood models.FoodInvoice
	if err := models.DB.Where("invoice_no = ?", foodInvoice.InvoiceNo).First(&existingFood).Error; err != nil {
		if err := models.DB.Create(&foodInvoice).Error; err != nil {
			stdLog.Printf("Failed to create food invoice %s: %v", foodInvoice.InvoiceNo, err)
		} else {
			stdLog.Printf("Created food invoice: %s", foodInvoice.InvoiceNo)
		}
	} else {
		stdLog.Printf("Food invoice already exists: %s", foodInvoice.InvoiceNo)
	}

	// 重算房账未付余额
	refreshAccountBalances(stdLog.Printf)

	stdLog.Printf("Seed completed")
}

func seedUnpaidLedgerEntry(logf func(string, ...interface{}), accountNo, recordType, recordNo string, amount models.Money) {
	if accountNo == "" {
		return
	}
	entry := models.LedgerEntry{
		AccountNo:  accountNo,
		RecordType: recordType,
		RecordNo:   recordNo,
		Bucket:     constants.LedgerBucketUnpaid,
		Amount:     amount,
	}
	if err := models.DB.Create(&entry).Error; err != nil {
		logf("Failed to create ledger entry %s/%s: %v", recordType, recordNo, err)
		return
	}
	logf("Created unpaid ledger entry: %s/%s", recordType, recordNo)
}

func refreshAccountBalances(logf func(string, ...interface{})) {
	var accounts []models.RoomAccount
	if err := models.DB.Find(&accounts).Error; err != nil {
		logf("Failed to load room accounts: %v", err)
		return
	}
	for _, account := range accounts {
		var unpaid int64
		row := models.DB.Model(&models.LedgerEntry{}).
			Select("COALESCE(SUM(amount), 0)").
			Where("account_no = ? AND bucket = ?", account.AccountNo, constants.LedgerBucketUnpaid).
			Row()
		if err := row.Scan(&unpaid); err != nil {
			logf("Failed to sum unpaid ledger for %s: %v", account.AccountNo, err)
			continue
		}
		if err := models.DB.Model(&models.RoomAccount{}).
			Where("account_no = ?", account.AccountNo).
			Update("balance", unpaid).Error; err != nil {
			logf("Failed to update balance for %s: %v", account.AccountNo, err)
			continue
		}
		logf("Refreshed balance for %s: %d", account.AccountNo, unpaid)
	}
}
