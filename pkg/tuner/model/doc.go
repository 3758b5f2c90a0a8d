// Package model holds the data shared by the tuner package and its options:
// display-ready panels for presentation layers and the option contract.
package model
