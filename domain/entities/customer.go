package entities

// Customer holds the billing form values entered during enrollment
type Customer struct {
	FirstName    string
	LastName     string
	Address      string
	Address2     string
	City         string
	State        string
	Zip          string
	Country      string
	Phone        string
	Email        string
	ConfirmEmail string
}

// Corrected returns a copy with the fields that fail validation replaced
func (c Customer) Corrected(address, city, zip, email string) Customer {
	c.Address = address
	c.City = city
	c.Zip = zip
	c.Email = email
	c.ConfirmEmail = email
	return c
}
