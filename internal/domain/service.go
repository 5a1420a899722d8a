package domain

// Service is a read-only catalog entry.
type Service struct {
	ID          int    `json:"id" validate:"required,gt=0"`
	Title       string `json:"title" validate:"required"`
	Price       string `json:"price" validate:"required"`
	Description string `json:"desc"`
}

// Catalog is the document shape of the catalog source (file, S3 object or embedded default).
type Catalog struct {
	Services []Service `json:"services" validate:"required,min=1,dive"`
}
