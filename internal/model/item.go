package model

// Item is one row from a tenant's items table. Tenant tables carry arbitrary
// columns beyond itemname/itemcode/createdat, so rows are kept as generic
// column maps and passed through to the client untouched.
type Item map[string]interface{}
