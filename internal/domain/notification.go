package domain

// Role is a job role a notification is addressed to. Clients filter toasts by it.
type Role string

const (
	RoleChef   Role = "Chef"
	RoleWaiter Role = "Waiter"
)

// ToastType controls how a client renders a toast.
type ToastType string

const (
	ToastInfo    ToastType = "info"
	ToastSuccess ToastType = "success"
)

// Toast is a role-targeted notification. It is delivered to every connection.
type Toast struct {
	Message    string    `json:"msg"`
	Type       ToastType `json:"type"`
	RoleTarget Role      `json:"roleTarget"`
}

// SyncState is the canonical table and kitchen snapshot pushed after kitchen mutations.
type SyncState struct {
	Tables        []Table        `json:"tables"`
	KitchenOrders []KitchenOrder `json:"kitchenOrders"`
}
