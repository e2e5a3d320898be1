package devserver

// DemoUsers seeds vcmock with one patient and two doctors.
var DemoUsers = []User{
	{ID: "pat-1", Name: "Ana Costa", Email: "ana@example.com", Role: "patient"},
	{ID: "doc-1", Name: "Dr. Rafael Lima", Email: "rafael@example.com", Role: "doctor"},
	{ID: "doc-2", Name: "Dr. Helena Prado", Email: "helena@example.com", Role: "doctor"},
}
