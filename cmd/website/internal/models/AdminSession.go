package models

/*
AdminSession is what the admin cookie carries. The admin is reloaded on
every request so removed accounts lose access immediately.
*/
type AdminSession struct {
	AdminID string
	Email   string
}
