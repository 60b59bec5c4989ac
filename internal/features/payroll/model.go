package payroll

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const CollectionName = "payroll"

// PayrollRecord is one employee's pay for one period.
type PayrollRecord struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EmployeeID string             `bson:"employee_id" json:"employeeId"`
	Name       string             `bson:"name" json:"name"`
	Department string             `bson:"department,omitempty" json:"department,omitempty"`
	Title      string             `bson:"title,omitempty" json:"title,omitempty"`
	Year       int                `bson:"year" json:"year"`
	Month      int                `bson:"month" json:"month"`

	BasePay    float64 `bson:"base_pay" json:"basePay"`
	Incentive  float64 `bson:"incentive" json:"incentive"`
	Bonus      float64 `bson:"bonus" json:"bonus"`
	Award      float64 `bson:"award" json:"award"`
	GrossPay   float64 `bson:"gross_pay" json:"grossPay"`
	NetPay     float64 `bson:"net_pay" json:"netPay"`
	Difference float64 `bson:"difference" json:"difference"`

	OperationID string    `bson:"operation_id" json:"operationId"`
	CreatedBy   string    `bson:"created_by" json:"createdBy"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`

	// Set on documents put back by a rollback.
	OriginalID           primitive.ObjectID `bson:"original_id,omitempty" json:"originalId,omitempty"`
	RestoredFromSnapshot bool               `bson:"restored_from_snapshot,omitempty" json:"restoredFromSnapshot,omitempty"`
	RestoredAt           *time.Time         `bson:"restored_at,omitempty" json:"restoredAt,omitempty"`
}
