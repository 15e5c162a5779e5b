// Package instance makes sure only one appliance process drives the hardware.
package instance
