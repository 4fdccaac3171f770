package schema

// Request payload shapes accepted by the order API.
var (
	NewOrder = Schema{
		"product": Schema{
			"id":       Integer,
			"quantity": Integer,
		},
	}

	ShippingInformation = Schema{
		"order": Schema{
			"email": String,
			"shipping_information": Schema{
				"country":     String,
				"address":     String,
				"postal_code": String,
				"city":        String,
				"province":    String,
			},
		},
	}

	CreditCard = Schema{
		"credit_card": Schema{
			"name":             String,
			"number":           String,
			"expiration_year":  Integer,
			"cvv":              String,
			"expiration_month": Integer,
		},
	}
)
