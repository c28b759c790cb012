package core

// SeedWallets are created for every new user.
var SeedWallets = []Wallet{
	{Name: "Cash", Description: "Money in hand"},
	{Name: "Bank Account", Description: "Main checking account"},
	{Name: "E-Wallet", Description: "Mobile payment balance"},
	{Name: "Savings", Description: "Savings account"},
}

// SeedCategories are created for every new user.
var SeedCategories = []Category{
	{Type: Expense, Name: "Food & Drinks", Description: "Groceries, restaurants, coffee"},
	{Type: Expense, Name: "Transportation", Description: "Fuel, parking, public transport"},
	{Type: Expense, Name: "Housing", Description: "Rent, maintenance"},
	{Type: Expense, Name: "Utilities", Description: "Electricity, water, internet, phone"},
	{Type: Expense, Name: "Shopping", Description: "Clothes, electronics, household"},
	{Type: Expense, Name: "Entertainment", Description: "Movies, games, hobbies"},
	{Type: Expense, Name: "Health", Description: "Doctor, pharmacy, insurance"},
	{Type: Expense, Name: "Education", Description: "Courses, books"},
	{Type: Expense, Name: "Other Expense", Description: "Everything else"},
	{Type: Income, Name: "Salary", Description: "Monthly salary"},
	{Type: Income, Name: "Bonus", Description: "Bonuses and commissions"},
	{Type: Income, Name: "Investment", Description: "Interest, dividends"},
	{Type: Income, Name: "Gift", Description: "Gifts received"},
	{Type: Income, Name: "Other Income", Description: "Everything else"},
}
