package scenario

import "roadside_e2e/domain/entities"

const (
	EnrollmentName      = "rv-platinum-complete"
	EnrollmentBaseURL   = "https://roadside.goodsam.com"
	EnrollmentUserAgent = "BetterStack"
)

// InvalidCustomer fails the site's address and email validation on purpose
func InvalidCustomer() entities.Customer {
	return entities.Customer{
		FirstName:    "John",
		LastName:     "Doe",
		Address:      "Invalid Address 123!@#",
		Address2:     "Apt 4B",
		City:         "InvalidCity123",
		State:        "Maryland",
		Zip:          "00000",
		Country:      "United States",
		Phone:        "555-123-4567",
		Email:        "invalid-email-format",
		ConfirmEmail: "different-email@test.com",
	}
}

// ValidCustomer is InvalidCustomer with the rejected fields fixed
func ValidCustomer() entities.Customer {
	return InvalidCustomer().Corrected("123 Main Street", "Laurel", "20707", "john.doe@yahoo.com")
}

func click(q entities.ElementQuery) entities.Action {
	return entities.Action{Type: entities.ActionClick, Query: q}
}

func optionalClick(q entities.ElementQuery) entities.Action {
	return entities.Action{Type: entities.ActionClick, Query: q, Optional: true}
}

func fill(label, value string) entities.Action {
	return entities.Action{Type: entities.ActionFill, Query: entities.Label(label), Value: value}
}

func choose(selector, option string) entities.Action {
	return entities.Action{Type: entities.ActionSelect, Query: entities.CSS(selector), Value: option}
}

func visible(q entities.ElementQuery) entities.Action {
	return entities.Action{Type: entities.ActionExpectVisible, Query: q}
}

func waitNetworkIdle() entities.Action {
	return entities.Action{Type: entities.ActionWaitLoad, State: entities.LoadStateNetworkIdle}
}

func expectURL(pattern string) entities.Action {
	return entities.Action{Type: entities.ActionExpectURL, Value: pattern}
}

// exact label matching keeps "Address" from also hitting "Address 2"
func exactLabel(label string) entities.ElementQuery {
	q := entities.Label(label)
	q.Exact = true
	return q
}

func customerForm(c entities.Customer) []entities.Action {
	return []entities.Action{
		fill("First Name", c.FirstName),
		fill("Last Name", c.LastName),
		{Type: entities.ActionFill, Query: exactLabel("Address"), Value: c.Address},
		fill("Address 2", c.Address2),
		fill("City", c.City),
		choose(`select[name="state"]`, c.State),
		fill("Zip Code", c.Zip),
		choose(`select[name="country"]`, c.Country),
		fill("Phone", c.Phone),
		{Type: entities.ActionFill, Query: exactLabel("Email"), Value: c.Email},
		fill("Confirm Email", c.ConfirmEmail),
		click(entities.Role("button", "Next Step")),
	}
}

func correctionForm(c entities.Customer) []entities.Action {
	return []entities.Action{
		optionalClick(entities.CSS(`.close, .dismiss, [aria-label="close"]`)),
		{Type: entities.ActionFill, Query: exactLabel("Address"), Value: c.Address},
		fill("City", c.City),
		fill("Zip Code", c.Zip),
		{Type: entities.ActionFill, Query: exactLabel("Email"), Value: c.Email},
		fill("Confirm Email", c.ConfirmEmail),
		click(entities.Role("button", "Next Step")),
	}
}

// Enrollment walks the RV Platinum Complete enrollment up to the payment form,
// entering invalid customer data first and correcting it when the site objects.
// It never submits a payment.
func Enrollment(invalid, valid entities.Customer) entities.Scenario {
	const termsPattern = "/terms|conditions|agreement/i"
	termsCheckbox := entities.Role("checkbox", termsPattern)
	// unlabelled checkboxes wrapped in the agreement text
	termsAgreement := entities.CSS(`label:has(input[type="checkbox"]), .form-check:has(input[type="checkbox"])`).WithHasText(termsPattern)

	return entities.Scenario{
		Name:      EnrollmentName,
		BaseURL:   EnrollmentBaseURL,
		UserAgent: EnrollmentUserAgent,
		Steps: []entities.Step{
			{
				Name: "Navigate to the Roadside site",
				Actions: []entities.Action{
					{Type: entities.ActionNavigate, Value: "/?test=hello1"},
					expectURL(`/roadside\.goodsam\.com/`),
				},
			},
			{
				Name: "Select Platinum Complete plan and enroll",
				Actions: []entities.Action{
					click(entities.Text("Platinum Complete")),
					click(entities.Role("button", "Enroll now")),
					waitNetworkIdle(),
					expectURL("/plan/i"),
				},
			},
			{
				Name: "Select RV Coverage and 3-Year Term",
				Actions: []entities.Action{
					click(entities.Text("RV Coverage")),
					click(entities.Role("radio", "3 years")),
				},
			},
			{
				Name: "Select RV type and continue",
				Actions: []entities.Action{
					choose(`select[name="rvType"]`, "5th Wheel Trailer"),
					click(entities.Role("button", "Continue")),
					waitNetworkIdle(),
					visible(entities.CSS("form")),
				},
			},
			{
				Name:    "Fill form with invalid data",
				Actions: customerForm(invalid),
			},
			{
				Name: "Check for validation errors and correct the data",
				WhenAny: []entities.ElementQuery{
					entities.CSS(`.error-popup, .alert-error, [role="alert"], .validation-error`),
					entities.Text("/error|invalid|required/i"),
				},
				Actions: correctionForm(valid),
			},
			{
				Name: "Decline any optional offers if shown",
				Actions: []entities.Action{
					waitNetworkIdle(),
					optionalClick(entities.Role("button", "/decline|no thanks|skip/i")),
				},
			},
			{
				Name: "Continue to payment review",
				Actions: []entities.Action{
					click(entities.Role("button", "Continue")),
					waitNetworkIdle(),
					click(entities.Role("button", "Review Payment")),
					waitNetworkIdle(),
				},
			},
			{
				Name: "Verify all payment form elements are visible",
				Actions: []entities.Action{
					visible(entities.Label("/card number|credit card/i")),
					visible(entities.Label("/cardholder name|name on card/i")),
					visible(entities.Label("/expiry|expiration|exp date/i")),
					visible(entities.Label("/cvv|security code|cvc/i")),
					visible(entities.Role("button", "/submit|pay now|complete/i")),
					{Type: entities.ActionExpectVisible, Query: termsCheckbox, Or: []entities.ElementQuery{termsAgreement}},
				},
			},
		},
	}
}

// DefaultEnrollment is the enrollment with the stock customer fixtures
func DefaultEnrollment() entities.Scenario {
	return Enrollment(InvalidCustomer(), ValidCustomer())
}
