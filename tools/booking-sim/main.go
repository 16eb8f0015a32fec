// booking-sim drives the appointment API end to end against a running
// stack: list slots, book the first one, then approve as owner and employee.
// Useful for smoke-testing docker-compose environments.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	var (
		baseURL    = flag.String("base-url", getenv("BASE_URL", "http://localhost:8084"), "appointment-service base url")
		customerID = flag.String("customer-id", getenv("CUSTOMER_ID", ""), "booking customer user id")
		ownerID    = flag.String("owner-id", getenv("OWNER_ID", ""), "business owner user id")
		staffID    = flag.String("staff-user-id", getenv("STAFF_USER_ID", ""), "employee's linked user id")
		businessID = flag.String("business-id", getenv("BUSINESS_ID", ""), "business id")
		serviceID  = flag.String("service-id", getenv("SERVICE_ID", ""), "service id")
		employeeID = flag.String("employee-id", getenv("EMPLOYEE_ID", ""), "employee id")
		date       = flag.String("date", time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02"), "booking date (YYYY-MM-DD)")
	)
	flag.Parse()

	for name, v := range map[string]string{
		"CUSTOMER_ID": *customerID,
		"OWNER_ID":    *ownerID,
		"BUSINESS_ID": *businessID,
		"SERVICE_ID":  *serviceID,
		"EMPLOYEE_ID": *employeeID,
	} {
		if strings.TrimSpace(v) == "" {
			fatal(name + " is required")
		}
	}

	base := strings.TrimRight(*baseURL, "/")

	slotsURL := fmt.Sprintf("%s/api/v1/public/slots?employee_id=%s&service_id=%s&date=%s", base, *employeeID, *serviceID, *date)
	var slots []struct {
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
	}
	doJSON(http.MethodGet, slotsURL, "", nil, &slots)
	if len(slots) == 0 {
		fatal("no free slots on " + *date)
	}
	fmt.Printf("slots=%d first=%s\n", len(slots), slots[0].StartTime)

	var appt struct {
		AppointmentID string `json:"appointment_id"`
		Status        string `json:"status"`
	}
	doJSON(http.MethodPost, base+"/api/v1/appointments", *customerID, map[string]string{
		"business_id": *businessID,
		"service_id":  *serviceID,
		"employee_id": *employeeID,
		"start_time":  slots[0].StartTime,
		"notes":       "booked by booking-sim",
	}, &appt)
	fmt.Printf("booked appointment_id=%s status=%s\n", appt.AppointmentID, appt.Status)

	approval := map[string]string{"appointment_id": appt.AppointmentID}

	doJSON(http.MethodPost, base+"/api/v1/appointments/approve/owner", *ownerID, approval, &appt)
	fmt.Printf("owner approved status=%s\n", appt.Status)

	if strings.TrimSpace(*staffID) != "" {
		doJSON(http.MethodPost, base+"/api/v1/appointments/approve/employee", *staffID, approval, &appt)
		fmt.Printf("employee approved status=%s\n", appt.Status)
	}
}

func doJSON(method, url, actor string, body any, out any) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			fatal(err.Error())
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		fatal(err.Error())
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != "" {
		req.Header.Set("X-Actor-Id", actor)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fatal(fmt.Sprintf("%s %s: status=%d body=%s", method, url, resp.StatusCode, strings.TrimSpace(string(raw))))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			fatal(err.Error())
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
