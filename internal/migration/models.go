package migration

import (
	attemptdomain "github.com/smallbiznis/planbilling/internal/attempt/domain"
	invoicedomain "github.com/smallbiznis/planbilling/internal/invoice/domain"
	memberdomain "github.com/smallbiznis/planbilling/internal/member/domain"
	membershipdomain "github.com/smallbiznis/planbilling/internal/membership/domain"
	notificationdomain "github.com/smallbiznis/planbilling/internal/notification/domain"
	paymentmethoddomain "github.com/smallbiznis/planbilling/internal/paymentmethod/domain"
	plandomain "github.com/smallbiznis/planbilling/internal/plan/domain"
	"gorm.io/gorm"
)

// Models lists every persisted model in dependency order.
func Models() []any {
	return []any{
		&plandomain.Plan{},
		&plandomain.PlanBenefit{},
		&plandomain.PlanTerm{},
		&plandomain.PlanPrice{},
		&memberdomain.Member{},
		&membershipdomain.Membership{},
		&paymentmethoddomain.PaymentMethod{},
		&invoicedomain.Invoice{},
		&attemptdomain.Attempt{},
		&notificationdomain.Notification{},
	}
}

// AutoMigrate creates the schema from the models. Used for mysql and sqlite,
// which have no embedded SQL migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
