package handlers

// @title Market Ledger API
// @version 1.0
// @description Inventory ledger for a second-hand vehicle marketplace: profiles, cars, bikes and purchases
// @termsOfService http://swagger.io/terms/

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8081
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @tag.name items
// @tag.description Car and bike listings and purchases

// @tag.name profiles
// @tag.description Profile queries and credentials

// @tag.name sales
// @tag.description Retained purchase history

// @tag.name admin
// @tag.description Loading, purging, export, archives and cache rebuild

// @tag.name auth
// @tag.description Authentication operations
