package shared

// Permission names gate every protected endpoint. Names are stored verbatim
// in the permissions table and embedded in access tokens.
const (
	PermViewCategories   = "VIEW_CATEGORIES"
	PermCreateCategories = "CREATE_CATEGORIES"
	PermEditCategories   = "EDIT_CATEGORIES"
	PermDeleteCategories = "DELETE_CATEGORIES"

	PermViewProducts   = "VIEW_PRODUCTS"
	PermCreateProducts = "CREATE_PRODUCTS"
	PermEditProducts   = "EDIT_PRODUCTS"
	PermDeleteProducts = "DELETE_PRODUCTS"

	PermViewStocks   = "VIEW_STOCKS"
	PermCreateStocks = "CREATE_STOCKS"
	PermEditStocks   = "EDIT_STOCKS"
	PermDeleteStocks = "DELETE_STOCKS"

	PermViewOrders     = "VIEW_ORDERS"
	PermCreateOrders   = "CREATE_ORDERS"
	PermEditOrders     = "EDIT_ORDERS"
	PermDeleteOrders   = "DELETE_ORDERS"
	PermValidateOrders = "VALIDATE_ORDERS"

	PermViewDeliveries     = "VIEW_DELIVERIES"
	PermCreateDeliveries   = "CREATE_DELIVERIES"
	PermEditDeliveries     = "EDIT_DELIVERIES"
	PermDeleteDeliveries   = "DELETE_DELIVERIES"
	PermValidateDeliveries = "VALIDATE_DELIVERIES"

	PermViewUsers   = "VIEW_USERS"
	PermCreateUsers = "CREATE_USERS"
	PermEditUsers   = "EDIT_USERS"
	PermDeleteUsers = "DELETE_USERS"

	PermViewRoles   = "VIEW_ROLES"
	PermCreateRoles = "CREATE_ROLES"
	PermEditRoles   = "EDIT_ROLES"
	PermDeleteRoles = "DELETE_ROLES"

	PermViewPermissions   = "VIEW_PERMISSIONS"
	PermCreatePermissions = "CREATE_PERMISSIONS"
	PermEditPermissions   = "EDIT_PERMISSIONS"
	PermDeletePermissions = "DELETE_PERMISSIONS"
	PermManagePermissions = "MANAGE_PERMISSIONS"

	PermViewAuditLogs = "VIEW_AUDIT_LOGS"

	PermViewNotifications   = "VIEW_NOTIFICATIONS"
	PermManageNotifications = "MANAGE_NOTIFICATIONS"

	PermViewReports     = "VIEW_REPORTS"
	PermGenerateReports = "GENERATE_REPORTS"
)

// AllPermissions lists every permission known to the platform, used by the
// seeder to populate the permissions table.
func AllPermissions() []string {
	return []string{
		PermViewCategories, PermCreateCategories, PermEditCategories, PermDeleteCategories,
		PermViewProducts, PermCreateProducts, PermEditProducts, PermDeleteProducts,
		PermViewStocks, PermCreateStocks, PermEditStocks, PermDeleteStocks,
		PermViewOrders, PermCreateOrders, PermEditOrders, PermDeleteOrders, PermValidateOrders,
		PermViewDeliveries, PermCreateDeliveries, PermEditDeliveries, PermDeleteDeliveries, PermValidateDeliveries,
		PermViewUsers, PermCreateUsers, PermEditUsers, PermDeleteUsers,
		PermViewRoles, PermCreateRoles, PermEditRoles, PermDeleteRoles,
		PermViewPermissions, PermCreatePermissions, PermEditPermissions, PermDeletePermissions, PermManagePermissions,
		PermViewAuditLogs,
		PermViewNotifications, PermManageNotifications,
		PermViewReports, PermGenerateReports,
	}
}
