// Package constraints infers foreign keys from the naming convention
// "<table>_<pk>" and adds the ones the database does not declare yet.
//
// Every created key uses ON DELETE RESTRICT ON UPDATE RESTRICT. Creation is
// best effort: CreateConstraints returns a Report with one Result per
// candidate instead of stopping at the first failing statement.
package constraints
