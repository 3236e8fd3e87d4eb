package domain

var Tables = []interface{}{
	// System
	&SysOpr{},
	&SysOprLog{},
	// Catalog
	&Category{},
	&Product{},
	&Customer{},
	// Sales
	&Transaction{},
	&TransactionDetail{},
}
