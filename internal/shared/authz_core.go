package shared

// Core platform permissions.
const (
	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"

	PermPermissionsView = "permissions.view"
	PermPermissionsEdit = "permissions.edit"

	PermCompaniesView = "companies.view"
	PermCompaniesEdit = "companies.edit"

	PermBranchesView = "branches.view"
	PermBranchesEdit = "branches.edit"
)

// Property management permissions.
const (
	PermPropertiesView   = "properties.view"
	PermPropertiesCreate = "properties.create"
	PermPropertiesEdit   = "properties.edit"
	PermPropertiesDelete = "properties.delete"

	PermOwnersView = "owners.view"
	PermOwnersEdit = "owners.edit"

	PermTenantsView = "tenants.view"
	PermTenantsEdit = "tenants.edit"

	PermPaymentsView    = "payments.view"
	PermPaymentsRecord  = "payments.record"
	PermPaymentsApprove = "payments.approve"

	PermMaintenanceView = "maintenance.view"
	PermMaintenanceEdit = "maintenance.edit"

	PermInspectionsView = "inspections.view"
	PermInspectionsEdit = "inspections.edit"

	PermFilesView   = "files.view"
	PermFilesUpload = "files.upload"
	PermFilesDelete = "files.delete"

	PermReportsView = "reports.view"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermRolesView,
		PermRolesEdit,
		PermPermissionsView,
		PermPermissionsEdit,
		PermCompaniesView,
		PermCompaniesEdit,
		PermBranchesView,
		PermBranchesEdit,
	}
}

// PropertyScopes lists all property management permissions.
func PropertyScopes() []string {
	return []string{
		PermPropertiesView,
		PermPropertiesCreate,
		PermPropertiesEdit,
		PermPropertiesDelete,
		PermOwnersView,
		PermOwnersEdit,
		PermTenantsView,
		PermTenantsEdit,
		PermPaymentsView,
		PermPaymentsRecord,
		PermPaymentsApprove,
		PermMaintenanceView,
		PermMaintenanceEdit,
		PermInspectionsView,
		PermInspectionsEdit,
		PermFilesView,
		PermFilesUpload,
		PermFilesDelete,
		PermReportsView,
	}
}
