package crm

import (
	"fmt"
	"time"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
)

// expiringSoonWindow is how close to the warranty end date a purchase is
// flagged as expiring.
const expiringSoonWindow = 30 * 24 * time.Hour

// warrantyStatusText phrases the warranty window relative to now.
func warrantyStatusText(now time.Time, endDate time.Time) string {
	switch {
	case now.After(endDate):
		return fmt.Sprintf("expired on %s", endDate.Format("Jan 2, 2006"))
	case endDate.Sub(now) <= expiringSoonWindow:
		return fmt.Sprintf("active, but expiring soon on %s", endDate.Format("Jan 2, 2006"))
	default:
		return fmt.Sprintf("active until %s", endDate.Format("Jan 2, 2006"))
	}
}

func warrantyFromPurchase(now time.Time, p contractx.Purchase) contractx.WarrantyStatus {
	return contractx.WarrantyStatus{
		ProductName:     p.ProductName,
		SerialNumber:    p.SerialNumber,
		CustomerID:      p.CustomerID,
		PurchaseDate:    p.PurchaseDate,
		WarrantyEndDate: p.WarrantyEndDate,
		WarrantyType:    p.WarrantyType,
		StatusText:      warrantyStatusText(now, p.WarrantyEndDate),
	}
}
