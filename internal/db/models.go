package db

type Filing struct {
	Filing     string
	FileName   string
	Company    string
	CompanyUrl string
	Date       string
	Time       string
	Type       string
	TosForm    string
	Format     string
	Size       string
	UpdatedAt  int64
}

type Company struct {
	Url        string
	Name       string
	Attributes string
	UpdatedAt  int64
}
